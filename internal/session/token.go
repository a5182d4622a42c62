package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenDecode marks a credential token the client cannot make sense of.
var ErrTokenDecode = errors.New("invalid credential token")

// Session is the client's belief about the current identity. The zero value
// is anonymous.
type Session struct {
	SubjectID string
	IsAdmin   bool
	Email     string
	Username  string
}

func (s Session) Anonymous() bool {
	return s.SubjectID == ""
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	IsAdmin  bool   `json:"isAdmin"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// DecodeToken extracts the identity payload from a credential token without
// verifying the signature; the remote API is the only party that checks it.
// Any malformed input yields ErrTokenDecode.
func DecodeToken(raw string) (Session, error) {
	if len(strings.Split(raw, ".")) != 3 {
		return Session{}, fmt.Errorf("%w: not a three-segment token", ErrTokenDecode)
	}
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	return Session{
		SubjectID: claims.UserID,
		IsAdmin:   claims.IsAdmin,
		Email:     claims.Email,
		Username:  claims.Username,
	}, nil
}
