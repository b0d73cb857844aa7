// Package authgate authenticates operator and spectator connections: bearer
// JWTs carrying a role and a box allow-list, and short-lived spectator
// tokens for the public read channel. There is no session store; a token
// is valid for as long as its signature checks out and it hasn't expired,
// full stop (no durable revocation list, see DESIGN.md).
package authgate

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/climbbox/boxhub/errors"
)

// Role identifies what a bearer token is allowed to do.
type Role string

const (
	RoleOperator  Role = "operator"
	RoleSpectator Role = "spectator"
)

// Claims is the payload carried by both operator and spectator tokens.
// BoxIDs is the allow-list: empty means "every box" for an operator token,
// and is always exactly one box for a spectator token.
type Claims struct {
	jwt.RegisteredClaims
	Role   Role  `json:"role"`
	BoxIDs []int `json:"boxIds,omitempty"`
}

// Manager signs and validates Claims.
type Manager struct {
	secret        []byte
	issuer        string
	leeway        time.Duration
	operatorTTL   time.Duration
	spectatorTTL  time.Duration
}

// NewManager builds a Manager. If secret is empty a random one is generated,
// which means operator tokens issued before a restart stop validating after
// one (acceptable: there is no durable token store to persist it into either).
func NewManager(secret, issuer string, leeway, operatorTTL, spectatorTTL time.Duration) (*Manager, error) {
	if secret == "" {
		generated, err := generateSecret(32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate jwt secret")
		}
		secret = generated
	}
	return &Manager{
		secret:       []byte(secret),
		issuer:       issuer,
		leeway:       leeway,
		operatorTTL:  operatorTTL,
		spectatorTTL: spectatorTTL,
	}, nil
}

// IssueOperatorToken signs a token for an operator allowed to command the
// given boxes (nil/empty means every box).
func (m *Manager) IssueOperatorToken(boxIDs []int) (string, error) {
	return m.issue(RoleOperator, boxIDs, m.operatorTTL)
}

// IssueSpectatorToken signs a short-lived, read-only token scoped to one box.
func (m *Manager) IssueSpectatorToken(boxID int) (string, error) {
	return m.issue(RoleSpectator, []int{boxID}, m.spectatorTTL)
}

func (m *Manager) issue(role Role, boxIDs []int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
		Role:   role,
		BoxIDs: boxIDs,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Validate parses and validates a token string, returning its claims. When
// the manager has an issuer, the token's "iss" claim must match it.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(m.leeway)}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Allows reports whether claims authorize access to boxID. An operator
// token with an empty BoxIDs list is allowed everywhere.
func (c *Claims) Allows(boxID int) bool {
	if c.Role == RoleOperator && len(c.BoxIDs) == 0 {
		return true
	}
	for _, id := range c.BoxIDs {
		if id == boxID {
			return true
		}
	}
	return false
}

func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate random bytes")
	}
	return hex.EncodeToString(b), nil
}
