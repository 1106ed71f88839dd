// Package auth resolves the upstream credential and turns a target URL into
// the ordered list of authenticated attempts the fetcher performs.
package auth

import (
	"errors"
	"fmt"

	"github.com/tripfeed/tripfeed/internal/config"
)

// ErrMissingCredential is returned when a required secret is unset or empty.
var ErrMissingCredential = errors.New("missing credential")

// Credential is an upstream secret. It never prints its value.
type Credential string

// String implements fmt.Stringer.
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer so %#v is redacted too.
func (c Credential) GoString() string {
	return c.String()
}

// Reveal returns the raw secret for use on the wire.
func (c Credential) Reveal() string {
	return string(c)
}

// lookup reads key from src on every call. Unset and empty are both missing.
func lookup(src config.Source, key string) (Credential, error) {
	v, ok := src.Lookup(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, key)
	}
	return Credential(v), nil
}
