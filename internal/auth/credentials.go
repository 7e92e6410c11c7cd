package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/menza/internal/model"
)

// Credentials is the single configured admin login.
type Credentials struct {
	user model.User
}

// NewCredentials hashes the configured password.
func NewCredentials(username, password string) (*Credentials, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username required")
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &Credentials{user: model.User{Username: username, PasswordHash: string(hash)}}, nil
}

// Username returns the admin username.
func (c *Credentials) Username() string {
	return c.user.Username
}

// Check reports whether username and password match the configured admin.
func (c *Credentials) Check(username, password string) bool {
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword([]byte(c.user.PasswordHash), []byte(password))
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.user.Username)) == 1
	return userOK && passErr == nil
}
