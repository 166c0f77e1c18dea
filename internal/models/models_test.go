package models

import "testing"

func TestBeforeCreateGeneratesIDs(t *testing.T) {
	account := &Account{}
	if err := account.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if account.ID == "" {
		t.Fatal("expected account ID to be generated")
	}

	token := &PhoneToken{}
	if err := token.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if token.ID == "" {
		t.Fatal("expected phone token ID to be generated")
	}

	key := &InviteKey{}
	if err := key.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if key.ID == "" {
		t.Fatal("expected invite key ID to be generated")
	}
}

func TestBeforeCreatePreservesExistingID(t *testing.T) {
	account := &Account{ID: "fixed"}
	if err := account.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if account.ID != "fixed" {
		t.Fatalf("expected ID to be preserved, got %s", account.ID)
	}
}
