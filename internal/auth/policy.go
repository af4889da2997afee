// Package auth decides who may read a report. Credentials are bcrypt hashes
// held in memory; session persistence lives in the storage package.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials marks a password that does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoCredential marks a policy with no password configured at all.
	ErrNoCredential = errors.New("no credential configured")
)

const bcryptCost = 12

// AccessPolicy maps report identifiers to password hashes. A report without
// its own entry falls back to the default password; a policy may also have
// per-report overrides only.
type AccessPolicy struct {
	defaultHash []byte
	perReport   map[string][]byte
}

// NewPolicy hashes the given passwords up front. Empty passwords in overrides
// are rejected; an empty default plus no overrides yields a policy that
// denies everything with ErrNoCredential.
func NewPolicy(defaultPassword string, overrides map[string]string) (*AccessPolicy, error) {
	p := &AccessPolicy{perReport: make(map[string][]byte, len(overrides))}

	if defaultPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash default password: %w", err)
		}
		p.defaultHash = hash
	}
	for reportID, password := range overrides {
		if password == "" {
			return nil, fmt.Errorf("empty password override for report %q", reportID)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for report %q: %w", reportID, err)
		}
		p.perReport[reportID] = hash
	}
	return p, nil
}

// Verify checks password against the credential for reportID.
func (p *AccessPolicy) Verify(reportID, password string) error {
	hash, ok := p.perReport[reportID]
	if !ok {
		hash = p.defaultHash
	}
	if hash == nil {
		return ErrNoCredential
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
