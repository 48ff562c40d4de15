package credential

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/password"
)

type countingHasher struct {
	*password.Argon2
	calls int
}

func (h *countingHasher) Verify(pw, encoded string) (bool, error) {
	h.calls++
	return h.Argon2.Verify(pw, encoded)
}

type failingLookup struct{}

func (failingLookup) GetByUsername(context.Context, string) (*identity.Record, error) {
	return nil, fmt.Errorf("%w: connection reset", identity.ErrUnavailable)
}

func newFixture(t *testing.T) (*Verifier, *countingHasher) {
	t.Helper()
	argon, err := password.NewArgon2(password.Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("new argon2: %v", err)
	}

	hash, err := argon.Hash("correct")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	dummy, err := argon.Hash("dummy-password")
	if err != nil {
		t.Fatalf("hash dummy: %v", err)
	}

	users := identity.NewMemoryStore()
	if _, err := users.Create(context.Background(), identity.Record{
		User:         identity.User{ID: "u-1", Username: "alice", Email: "alice@example.com"},
		PasswordHash: hash,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	hasher := &countingHasher{Argon2: argon}
	return NewVerifier(users, hasher, dummy), hasher
}

func TestVerifyCorrectPassword(t *testing.T) {
	v, _ := newFixture(t)

	user, err := v.Verify(context.Background(), "alice", "correct")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != "u-1" || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestVerifyFailures(t *testing.T) {
	v, hasher := newFixture(t)
	ctx := context.Background()

	if _, err := v.Verify(ctx, "alice", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}

	before := hasher.calls
	if _, err := v.Verify(ctx, "mallory", "anything"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if hasher.calls != before+1 {
		t.Fatalf("expected unknown user to still run one hash verification, got %d", hasher.calls-before)
	}
}

func TestVerifyCorruptStoredHash(t *testing.T) {
	argon, _ := password.NewArgon2(password.DefaultConfig())
	users := identity.NewMemoryStore()
	_, _ = users.Create(context.Background(), identity.Record{
		User:         identity.User{Username: "bob"},
		PasswordHash: "not-a-phc-hash",
	})

	v := NewVerifier(users, argon, "")
	if _, err := v.Verify(context.Background(), "bob", "pw"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestVerifyLookupFailure(t *testing.T) {
	argon, _ := password.NewArgon2(password.DefaultConfig())
	v := NewVerifier(failingLookup{}, argon, "")

	_, err := v.Verify(context.Background(), "alice", "correct")
	if !errors.Is(err, ErrLookupFailed) || !errors.Is(err, identity.ErrUnavailable) {
		t.Fatalf("expected wrapped lookup failure, got %v", err)
	}
}
