package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"examprep_backend/internal/config"
	"examprep_backend/internal/model"
	"examprep_backend/internal/repository"
	"examprep_backend/internal/util"
	"strings"
	"testing"
	"time"
)

func newTestAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()
	repo := repository.NewUserRepository(newTestDB(t))
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	return NewAuthService(repo, cfg), repo
}

func TestRegisterNormalizesEmailAndHashes(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "  Ana@Example.COM ", Password: "password1", FirstName: "Ana"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "ana@example.com" || user.Role != model.Student {
		t.Fatalf("user %+v", user)
	}

	stored, err := repo.FindByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if stored.PasswordHash == "password1" || !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("password not bcrypt-hashed: %q", stored.PasswordHash)
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "password2"}); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("duplicate: got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "b@example.com", Password: "short"}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("short password: got %v", err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "bo@example.com", Password: "password1"}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Login(ctx, "BO@example.com", "password1")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := util.ParseJWT(res.Token, "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != res.User.ID || claims.Email != "bo@example.com" {
		t.Fatalf("claims %+v", claims)
	}
	if res.User.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}

	if _, err := svc.Login(ctx, "bo@example.com", "wrong-password"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password1"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("legacy-pass"))
	user := &model.User{Email: "old@example.com", PasswordHash: hex.EncodeToString(sum[:]), Role: model.Student}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, "old@example.com", "not-it"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("wrong legacy password: got %v", err)
	}
	if _, err := svc.Login(ctx, "old@example.com", "legacy-pass"); err != nil {
		t.Fatal(err)
	}

	stored, _ := repo.FindByID(ctx, user.ID)
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("hash not upgraded: %q", stored.PasswordHash)
	}
	if _, err := svc.Login(ctx, "old@example.com", "legacy-pass"); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestLoginRejectsPlaintextPassword(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Email: "plain@example.com", PasswordHash: "plaintext1", Role: model.Student}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "plain@example.com", "plaintext1"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("plaintext stored password must not authenticate, got %v", err)
	}
}
