package auth

import (
	"errors"
	"testing"
)

func TestVerifyDefaultPassword(t *testing.T) {
	p, err := NewPolicy("hunter2", nil)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	if err := p.Verify("2024-01", "hunter2"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
	if err := p.Verify("2024-01", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify() with wrong password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyPerReportOverride(t *testing.T) {
	p, err := NewPolicy("hunter2", map[string]string{"2024-02": "special"})
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	if err := p.Verify("2024-02", "special"); err != nil {
		t.Errorf("Verify() with override password error = %v", err)
	}
	// The default must not unlock a report that has its own credential.
	if err := p.Verify("2024-02", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify() with default on overridden report error = %v, want ErrInvalidCredentials", err)
	}
	if err := p.Verify("2024-03", "hunter2"); err != nil {
		t.Errorf("Verify() falling back to default error = %v", err)
	}
}

func TestVerifyNoCredential(t *testing.T) {
	p, err := NewPolicy("", map[string]string{"2024-02": "special"})
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	if err := p.Verify("2024-01", "anything"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Verify() without default error = %v, want ErrNoCredential", err)
	}
	if err := p.Verify("2024-02", "special"); err != nil {
		t.Errorf("Verify() with override error = %v", err)
	}
}

func TestNewPolicyRejectsEmptyOverride(t *testing.T) {
	if _, err := NewPolicy("x", map[string]string{"2024-01": ""}); err == nil {
		t.Error("NewPolicy() accepted empty override password")
	}
}
