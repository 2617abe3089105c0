package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
)

func newTestAuth(t *testing.T, env *testEnv) AuthService {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	return NewAuthService(env.db, logger.NewNop(), env.userProfileRepo)
}

func TestAuth_RegisterLoginRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	ctx := context.Background()

	user, token, err := auth.Register(ctx, "Student@Example.edu", "correct-horse", "A Student")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "student@example.edu" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if token == "" {
		t.Fatalf("expected token on register")
	}

	userID, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("token subject mismatch: %s vs %s", userID, user.ID)
	}

	loggedIn, _, err := auth.Login(ctx, "student@example.edu", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("login returned wrong user")
	}
}

func TestAuth_DuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	ctx := context.Background()

	if _, _, err := auth.Register(ctx, "dup@example.edu", "password1", "First"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, err := auth.Register(ctx, "dup@example.edu", "password2", "Second")
	if !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAuth_BadCredentialsAndTokens(t *testing.T) {
	env := newTestEnv(t)
	auth := newTestAuth(t, env)
	ctx := context.Background()

	if _, _, err := auth.Register(ctx, "user@example.edu", "password1", "User"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := auth.Login(ctx, "user@example.edu", "wrong"); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized on bad password, got %v", err)
	}
	if _, _, err := auth.Login(ctx, "ghost@example.edu", "password1"); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized on unknown email, got %v", err)
	}
	if _, err := auth.ValidateToken("not-a-token"); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized on garbage token, got %v", err)
	}
}
