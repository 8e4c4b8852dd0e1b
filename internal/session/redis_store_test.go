package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"scopilot/api/internal/store"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	sessions, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return sessions, s
}

func testUser(id string) store.User {
	return store.User{
		ID:          id,
		DisplayName: "Marie Dupont",
		Email:       id + "@example.com",
		Role:        "user",
	}
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	sessions, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer sessions.Close()

	if err := sessions.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := sessions.SaveRefreshSession(ctx, "test-token-hash", testUser("user-123"), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	user, err := sessions.LookupRefreshSession(ctx, "test-token-hash")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if user.ID != "user-123" {
		t.Errorf("expected user ID user-123, got %s", user.ID)
	}
	if user.DisplayName != "Marie Dupont" || user.Role != "user" {
		t.Errorf("identity snapshot must round trip, got %+v", user)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(1 * time.Millisecond)
	if err := sessions.SaveRefreshSession(ctx, "expired-token", testUser("user-456"), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := sessions.LookupRefreshSession(ctx, "expired-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for expired token, got %v", err)
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	if _, err := sessions.LookupRefreshSession(context.Background(), "non-existent-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := sessions.SaveRefreshSession(ctx, "token-to-revoke", testUser("user-789"), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if _, err := sessions.LookupRefreshSession(ctx, "token-to-revoke"); err != nil {
		t.Fatalf("Lookup before revoke failed: %v", err)
	}

	if err := sessions.RevokeRefreshSession(ctx, "token-to-revoke"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := sessions.LookupRefreshSession(ctx, "token-to-revoke"); err == nil {
		t.Error("expected error for revoked token, got nil")
	}

	// Revoking a missing token is not an error.
	if err := sessions.RevokeRefreshSession(ctx, "non-existent-token"); err != nil {
		t.Errorf("RevokeRefreshSession for non-existent token failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := sessions.SaveRefreshSession(ctx, "token-1", testUser("user-1"), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession 1 failed: %v", err)
	}
	if err := sessions.SaveRefreshSession(ctx, "token-2", testUser("user-2"), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession 2 failed: %v", err)
	}

	if err := sessions.RevokeRefreshSession(ctx, "token-1"); err != nil {
		t.Fatalf("Revoke token-1 failed: %v", err)
	}

	if _, err := sessions.LookupRefreshSession(ctx, "token-1"); err == nil {
		t.Error("expected error for revoked token-1, got nil")
	}
	user2, err := sessions.LookupRefreshSession(ctx, "token-2")
	if err != nil {
		t.Fatalf("Lookup token-2 after revoke failed: %v", err)
	}
	if user2.ID != "user-2" {
		t.Errorf("expected user-2 after revoke, got %s", user2.ID)
	}
}
