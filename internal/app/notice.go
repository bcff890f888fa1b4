package app

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
)

// Notice is an error as the shopper sees it.
type Notice struct {
	Title   string
	Message string
}

func (n Notice) String() string {
	return n.Title + ": " + n.Message
}

// Describe maps err to a notice. Every error gets one; none is fatal.
func Describe(err error) Notice {
	switch {
	case err == nil:
		return Notice{}
	case errors.Is(err, domain.ErrUnauthenticated):
		return Notice{Title: "Not Logged In", Message: "Please log in to continue."}
	case errors.Is(err, domain.ErrValidation):
		return Notice{Title: "Validation Error", Message: validationMessage(err)}
	case errors.Is(err, domain.ErrTimeout):
		return Notice{Title: "Timeout", Message: "The server took too long to respond. Please try again."}
	case errors.Is(err, domain.ErrNetworkUnreachable):
		return Notice{Title: "Network Error", Message: "Could not reach the store. Check your connection and try again."}
	case errors.Is(err, domain.ErrInvalidResponse):
		return Notice{Title: "Error", Message: responseMessage(err)}
	default:
		return Notice{Title: "Error", Message: err.Error()}
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrValidation.Error()+": "); i >= 0 {
		msg = msg[i+len(domain.ErrValidation.Error())+2:]
	}
	if msg == "" {
		return "Please check your input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func responseMessage(err error) string {
	var se *api.StatusError
	if !errors.As(err, &se) {
		return "Unexpected response from the server."
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(se.Body), &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return se.Body
}
