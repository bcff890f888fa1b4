// Package auth owns the signed-in session and its login/logout lifecycle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/session"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

var (
	ErrMissingFields = fmt.Errorf("%w: please fill all required fields", domain.ErrValidation)
	ErrInvalidEmail  = fmt.Errorf("%w: please enter a valid email address", domain.ErrValidation)
	ErrNoChanges     = fmt.Errorf("%w: enter a new name or password", domain.ErrValidation)
)

// UsersAPI is the part of the remote API the auth context calls.
type UsersAPI interface {
	SignUp(ctx context.Context, req api.SignUpRequest) error
	SignIn(ctx context.Context, req api.SignInRequest) (domain.Session, error)
	UpdateUser(ctx context.Context, req api.UpdateUserRequest) error
}

// Context is the single place the session lives. Components that need the
// token receive the Context rather than reading the store themselves.
type Context struct {
	users   UsersAPI
	store   session.Store
	logger  *zap.Logger
	current *domain.Session
}

func NewContext(users UsersAPI, store session.Store, logger *zap.Logger) *Context {
	return &Context{
		users:  users,
		store:  store,
		logger: logger,
	}
}

// Restore loads a previously persisted session. It reports whether the user
// is signed in.
func (c *Context) Restore(ctx context.Context) (bool, error) {
	token, err := c.store.Get(ctx, domain.SessionKeyToken)
	if errors.Is(err, session.ErrNotFound) {
		c.current = nil
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	s := domain.Session{Token: token}
	for key, dst := range map[string]*string{
		domain.SessionKeyName:  &s.Name,
		domain.SessionKeyEmail: &s.Email,
	} {
		v, err := c.store.Get(ctx, key)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return false, fmt.Errorf("load session: %w", err)
		}
		*dst = v
	}
	id, err := c.store.Get(ctx, domain.SessionKeyID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return false, fmt.Errorf("load session: %w", err)
	}
	s.UserID = domain.ID(id)

	c.current = &s
	c.logger.Info("session restored", zap.String("user_id", s.UserID.String()))
	return true, nil
}

// SignUp creates the account and signs in with it.
func (c *Context) SignUp(ctx context.Context, name, email, password string) (domain.Session, error) {
	if name == "" || email == "" || password == "" {
		return domain.Session{}, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return domain.Session{}, ErrInvalidEmail
	}

	if err := c.users.SignUp(ctx, api.SignUpRequest{Name: name, Email: email, Password: password}); err != nil {
		return domain.Session{}, fmt.Errorf("sign up: %w", err)
	}
	c.logger.Info("account created", zap.String("email", email))

	return c.SignIn(ctx, email, password)
}

func (c *Context) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	if email == "" || password == "" {
		return domain.Session{}, ErrMissingFields
	}

	s, err := c.users.SignIn(ctx, api.SignInRequest{Email: email, Password: password})
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign in: %w", err)
	}

	// The token goes last so a partial write never leaves a usable session.
	values := []struct{ key, value string }{
		{domain.SessionKeyID, s.UserID.String()},
		{domain.SessionKeyName, s.Name},
		{domain.SessionKeyEmail, s.Email},
		{domain.SessionKeyToken, s.Token},
	}
	prev, err := c.snapshot(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	for i, v := range values {
		if err := c.store.Set(ctx, v.key, v.value); err != nil {
			written := make([]string, 0, i)
			for _, w := range values[:i] {
				written = append(written, w.key)
			}
			c.rollback(ctx, written, prev)
			return domain.Session{}, fmt.Errorf("save session: %w", err)
		}
	}

	c.current = &s
	c.logger.Info("signed in", zap.String("user_id", s.UserID.String()))
	return s, nil
}

// snapshot reads the persisted session keys that are present.
func (c *Context) snapshot(ctx context.Context) (map[string]string, error) {
	prev := make(map[string]string, len(domain.SessionKeys))
	for _, key := range domain.SessionKeys {
		v, err := c.store.Get(ctx, key)
		if errors.Is(err, session.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		prev[key] = v
	}
	return prev, nil
}

// rollback puts the written keys back to their values in prev.
func (c *Context) rollback(ctx context.Context, written []string, prev map[string]string) {
	for _, key := range written {
		var err error
		if v, ok := prev[key]; ok {
			err = c.store.Set(ctx, key, v)
		} else {
			err = c.store.Delete(ctx, key)
		}
		if err != nil {
			c.logger.Error("failed to roll back session key", zap.String("key", key), zap.Error(err))
		}
	}
}

func (c *Context) SignOut(ctx context.Context) error {
	if err := c.store.Delete(ctx, domain.SessionKeys...); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	c.current = nil
	c.logger.Info("signed out")
	return nil
}

// UpdateProfile changes the name, the password, or both. A new name is
// persisted once the server accepts it.
func (c *Context) UpdateProfile(ctx context.Context, name, password string) error {
	if name == "" && password == "" {
		return ErrNoChanges
	}
	s, err := c.require()
	if err != nil {
		return err
	}

	if err := c.users.UpdateUser(ctx, api.UpdateUserRequest{ID: s.UserID, Name: name, Password: password}); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if name != "" {
		if err := c.store.Set(ctx, domain.SessionKeyName, name); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		c.current.Name = name
	}
	c.logger.Info("profile updated", zap.String("user_id", s.UserID.String()))
	return nil
}

// Token returns the bearer token or domain.ErrUnauthenticated.
func (c *Context) Token() (string, error) {
	s, err := c.require()
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

func (c *Context) Session() (domain.Session, bool) {
	if c.current == nil {
		return domain.Session{}, false
	}
	return *c.current, true
}

func (c *Context) SignedIn() bool {
	return c.current != nil && c.current.Token != ""
}

func (c *Context) require() (domain.Session, error) {
	if !c.SignedIn() {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return *c.current, nil
}
