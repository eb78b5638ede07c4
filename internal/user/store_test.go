package user

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &User{PasswordHash: string(hash)}

	if !CheckPassword(u, "correct-horse") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(u, "battery-staple") {
		t.Error("expected wrong password to fail")
	}
	if CheckPassword(u, "") {
		t.Error("expected empty password to fail")
	}
}

func TestCheckPassword_BadHash(t *testing.T) {
	u := &User{PasswordHash: "not-a-bcrypt-hash"}
	if CheckPassword(u, "anything") {
		t.Error("expected malformed hash to fail verification")
	}
}
