// Package users holds the login credentials the FTP engine checks during
// the USER/PASS challenge. Passwords are stored as bcrypt hashes, never
// as plain text.
package users

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyCredentials = errors.New("username and password must not be empty")

// Credentials is one username/password pair. The zero value matches
// nothing.
type Credentials struct {
	username string
	hash     []byte
}

// New hashes the password and returns the credentials.
func New(username, password string) (*Credentials, error) {
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Credentials{username: username, hash: hash}, nil
}

// NewWithHash builds credentials from an already-hashed password, e.g.
// one loaded from configuration.
func NewWithHash(username string, hash []byte) (*Credentials, error) {
	if username == "" || len(hash) == 0 {
		return nil, ErrEmptyCredentials
	}
	return &Credentials{username: username, hash: hash}, nil
}

func (c *Credentials) Username() string {
	return c.username
}

// MatchUsername compares in constant time.
func (c *Credentials) MatchUsername(username string) bool {
	return subtle.ConstantTimeCompare([]byte(c.username), []byte(username)) == 1
}

// MatchPassword checks the password against the stored hash.
func (c *Credentials) MatchPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}
