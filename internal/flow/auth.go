package flow

import (
	"context"
	"strings"

	"blogclient/internal/api"
	"blogclient/internal/models"
	"blogclient/internal/session"
)

// Auth drives login and registration against the remote API and the
// session store.
type Auth struct {
	api   *api.Client
	store *session.Store
}

func NewAuth(client *api.Client, store *session.Store) *Auth {
	return &Auth{api: client, store: store}
}

// Login exchanges credentials for a token, adopts it, and returns the
// landing path: the admin dashboard for admins, home for everyone else.
// Any failure along the way leaves the session anonymous.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", ValidationError("Email and password are required")
	}
	token, err := a.api.Login(ctx, models.Credentials{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	if err := a.store.Login(token); err != nil {
		return "", err
	}
	if a.store.Current().IsAdmin {
		return "/admin", nil
	}
	return "/", nil
}

// Register creates an account. The password check happens before any
// network call, and success does not log the user in.
func (a *Auth) Register(ctx context.Context, email, username, password, confirm string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(username) == "" || password == "" {
		return ValidationError("All fields are required")
	}
	if password != confirm {
		return ValidationError("Passwords do not match")
	}
	reg := models.Registration{Email: email, Username: username, Password: password}
	return a.api.Register(ctx, reg)
}
