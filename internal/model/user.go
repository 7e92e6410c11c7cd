package model

import "fmt"

// User is the panel operator allowed to change the menu.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// MinPasswordLength is the shortest accepted admin password.
const MinPasswordLength = 8

// ValidatePassword checks that a password satisfies the minimum policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
