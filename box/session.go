package box

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/climbbox/boxhub/errors"
)

// newSessionID generates a fresh opaque session identifier: 128 bits of
// randomness, URL-safe encoded, grounded on the same crypto/rand-based
// secret generation the operator bearer token issuer uses.
func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate session id")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// rotateSession regenerates the session id and bumps the box version by
// one, the mechanism that invalidates every writer holding the previous
// incarnation's credentials (§4.D).
func (b *Box) rotateSession() error {
	sid, err := newSessionID()
	if err != nil {
		return err
	}
	b.SessionID = sid
	b.BoxVersion++
	return nil
}
