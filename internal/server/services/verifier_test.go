package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/avezhnov/ctfdeck/internal/common"
	"github.com/avezhnov/ctfdeck/internal/server/models"
)

// verifierDirectory is a tiny in-memory users.Repository good enough for
// Verifier tests: only FindByUsernameOrEmail is functional.
type verifierDirectory struct {
	fakeUsersRepo
	accounts []*models.User
	dup      bool
}

func (d *verifierDirectory) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	if d.dup {
		return nil, common.ErrDuplicateAccount
	}
	for _, u := range d.accounts {
		if strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier) {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("error hashing password: %v", err)
	}
	return string(h)
}

func TestVerifier_Verify(t *testing.T) {
	alice := &models.User{
		ID:           "u-alice",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: mustHash(t, "correct horse"),
		IsActive:     false, // Verify must not care
	}
	dir := &verifierDirectory{accounts: []*models.User{alice}}
	v := NewVerifier(dir, bcrypt.MinCost)

	tests := []struct {
		name       string
		identifier string
		password   string
		want       *models.User
	}{
		{"by username", "alice", "correct horse", alice},
		{"by username uppercased", "ALICE", "correct horse", alice},
		{"by email", "alice@example.com", "correct horse", alice},
		{"by email uppercased", "ALICE@EXAMPLE.COM", "correct horse", alice},
		{"wrong password", "alice", "wrong", nil},
		{"unknown identifier", "bob", "correct horse", nil},
		{"empty identifier", "", "correct horse", nil},
		{"inactive account still verifies", "alice", "correct horse", alice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(context.Background(), tt.identifier, tt.password)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifier_Verify_Idempotent(t *testing.T) {
	alice := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: mustHash(t, "correct horse"),
	}
	dir := &verifierDirectory{accounts: []*models.User{alice}}
	v := NewVerifier(dir, bcrypt.MinCost)

	for i := 0; i < 3; i++ {
		got, err := v.Verify(context.Background(), "alice", "correct horse")
		if err != nil || got != alice {
			t.Fatalf("attempt %d: got (%v, %v), want (alice, nil)", i, got, err)
		}
	}
}

func TestVerifier_Verify_DuplicateAccount(t *testing.T) {
	dir := &verifierDirectory{dup: true}
	v := NewVerifier(dir, bcrypt.MinCost)

	user, err := v.Verify(context.Background(), "shared@example.com", "whatever")
	if user != nil {
		t.Errorf("expected nil user, got %v", user)
	}
	if !errors.Is(err, common.ErrDuplicateAccount) {
		t.Errorf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestVerifier_Verify_RepositoryError(t *testing.T) {
	dir := &fakeUsersRepo{findErr: errors.New("connection refused")}
	v := NewVerifier(dir, bcrypt.MinCost)

	user, err := v.Verify(context.Background(), "alice", "whatever")
	if user != nil {
		t.Errorf("expected nil user, got %v", user)
	}
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}

func TestVerifier_Verify_UnknownIdentifierBurnsHash(t *testing.T) {
	orig := generateFromPassword
	defer func() { generateFromPassword = orig }()

	var burned int
	generateFromPassword = func(password []byte, cost int) ([]byte, error) {
		burned++
		if cost != bcrypt.MinCost {
			t.Errorf("dummy hash cost = %d, want %d", cost, bcrypt.MinCost)
		}
		return orig(password, cost)
	}

	dir := &verifierDirectory{}
	v := NewVerifier(dir, bcrypt.MinCost)

	if _, err := v.Verify(context.Background(), "nobody", "whatever"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if burned != 1 {
		t.Errorf("dummy hash burned %d times, want 1", burned)
	}
}

// The unknown-identifier path should take roughly as long as the
// wrong-password path. The bound is deliberately loose: the point is to
// catch the fast-fail regression (skipping the dummy hash entirely), not
// to measure bcrypt precisely.
func TestVerifier_Verify_TimingParity(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	alice := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: mustHash(t, "correct horse"),
	}
	dir := &verifierDirectory{accounts: []*models.User{alice}}
	v := NewVerifier(dir, bcrypt.MinCost)

	const trials = 20
	measure := func(identifier string) time.Duration {
		var total time.Duration
		for i := 0; i < trials; i++ {
			start := time.Now()
			if _, err := v.Verify(context.Background(), identifier, "wrong"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			total += time.Since(start)
		}
		return total / trials
	}

	badPassword := measure("alice")
	noMatch := measure("nobody")

	if noMatch*10 < badPassword*3 {
		t.Errorf("unknown identifier too fast: %v vs wrong password %v", noMatch, badPassword)
	}
}
