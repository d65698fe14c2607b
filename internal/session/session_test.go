package session

import (
	"errors"
	"testing"
)

func TestNewStatic(t *testing.T) {
	id := NewStatic("user-1", " secret ")
	if err := id.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if id.UserID() != "user-1" {
		t.Errorf("UserID() = %q, want user-1", id.UserID())
	}

	tok, err := id.TokenSource().Token()
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if tok.AccessToken != "secret" {
		t.Errorf("AccessToken = %q, want secret", tok.AccessToken)
	}
	if tok.Type() != "Bearer" {
		t.Errorf("Type() = %q, want Bearer", tok.Type())
	}
}

func TestNewStaticBlankTokenIsAnonymous(t *testing.T) {
	id := NewStatic("user-1", "  ")
	if err := id.Validate(); !errors.Is(err, ErrAnonymous) {
		t.Errorf("Validate() = %v, want ErrAnonymous", err)
	}
	if id.TokenSource() != nil {
		t.Error("expected nil token source")
	}
}
