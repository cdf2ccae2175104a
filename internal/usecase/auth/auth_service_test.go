package auth

import (
	"context"
	"testing"
	"time"

	"github.com/quietline/quietline/pkg/config"
	"github.com/quietline/quietline/pkg/jwt"
)

func testService() *AuthService {
	cfg := &config.Config{
		Auth: config.AuthConfig{Username: "operator", Password: "hunter2"},
	}
	manager := jwt.NewManager("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)
	return NewAuthService(cfg, manager, nil)
}

func TestLogin_Success(t *testing.T) {
	svc := testService()

	pair, err := svc.Login(context.Background(), "operator", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens issued")
	}
	if pair.ExpiresIn != 15*time.Minute {
		t.Errorf("unexpected expiry: %s", pair.ExpiresIn)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := testService()

	if _, err := svc.Login(context.Background(), "operator", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}
	if _, err := svc.Login(context.Background(), "admin", "hunter2"); err == nil {
		t.Fatal("expected login with wrong username to fail")
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	svc := testService()

	pair, err := svc.Login(context.Background(), "operator", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc := testService()

	pair, err := svc.Login(context.Background(), "operator", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// An access token is signed with a different secret and must not refresh.
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); err == nil {
		t.Fatal("expected refresh with an access token to fail")
	}
}
