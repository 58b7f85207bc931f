package credentials

import (
	"errors"
	"fmt"
)

// Scope names an API area a credential may access
type Scope string

const (
	ScopeActivityStream Scope = "activity-stream"
	ScopeDataHub        Scope = "data-hub"
	ScopeDataFlow       Scope = "data-flow"
	ScopeAll            Scope = "*"
)

var knownScopes = map[Scope]bool{
	ScopeActivityStream: true,
	ScopeDataHub:        true,
	ScopeDataFlow:       true,
	ScopeAll:            true,
}

// ErrInvalidCredential is returned for credential definitions that fail validation
var ErrInvalidCredential = errors.New("invalid credential")

// Credential is one partner system's Hawk identity
type Credential struct {
	ID          string  `yaml:"id"`
	Key         string  `yaml:"key"`
	Scopes      []Scope `yaml:"scopes"`
	Description string  `yaml:"description,omitempty"`
}

// HasScope reports whether the credential grants scope
func (c *Credential) HasScope(scope Scope) bool {
	for _, s := range c.Scopes {
		if s == ScopeAll || s == scope {
			return true
		}
	}
	return false
}

// Validate checks a single credential definition
func (c *Credential) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidCredential)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: %s has no key", ErrInvalidCredential, c.ID)
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("%w: %s has no scopes", ErrInvalidCredential, c.ID)
	}
	for _, s := range c.Scopes {
		if !knownScopes[s] {
			return fmt.Errorf("%w: %s has unknown scope %q", ErrInvalidCredential, c.ID, s)
		}
	}
	return nil
}
