package authgate

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", "boxhub-test", 5*time.Second, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestOperatorTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueOperatorToken([]int{1, 2})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Role != RoleOperator || !claims.Allows(1) || claims.Allows(3) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestOperatorTokenWithoutBoxIDsAllowsAll(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueOperatorToken(nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !claims.Allows(42) {
		t.Fatalf("expected unscoped operator token to allow any box")
	}
}

func TestSpectatorTokenScopedToOneBox(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueSpectatorToken(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mw := NewMiddleware(m)
	if _, err := mw.ValidateSpectator(token, 7); err != nil {
		t.Fatalf("expected box 7 to validate: %v", err)
	}
	if _, err := mw.ValidateSpectator(token, 8); err == nil {
		t.Fatalf("expected box 8 to be rejected")
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Validate("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
