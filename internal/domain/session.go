package domain

// Keys under which the session is persisted.
const (
	SessionKeyToken = "userToken"
	SessionKeyID    = "userId"
	SessionKeyName  = "userName"
	SessionKeyEmail = "userEmail"
)

// SessionKeys lists every persisted session key.
var SessionKeys = []string{SessionKeyToken, SessionKeyID, SessionKeyName, SessionKeyEmail}

type Session struct {
	Token  string
	UserID ID
	Name   string
	Email  string
}
