package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"choreboard/internal/database"
	"choreboard/internal/models"
	"choreboard/internal/repository"
)

func setupService(t *testing.T) *Service {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return NewService(repository.NewAccountRepository(db), "test-token-secret", time.Hour)
}

func TestSessionState(t *testing.T) {
	svc := NewService(nil, "test-token-secret", time.Hour)

	var seen []*models.Account
	unsub := svc.OnSessionChange(func(acct *models.Account) {
		seen = append(seen, acct)
	})

	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("listener not invoked with initial nil state, got %v", seen)
	}

	acct := &models.Account{ID: "acct-1", Kind: models.AccountDurable}
	svc.ActivateSession(acct)
	if svc.Active() != acct {
		t.Error("Active() does not return the activated account")
	}
	if len(seen) != 2 || seen[1] != acct {
		t.Fatalf("listener not notified of activation, got %v", seen)
	}

	// Discarding a different account leaves the session alone.
	svc.DiscardSession(&models.Account{ID: "acct-2"})
	if svc.Active() != acct {
		t.Error("DiscardSession() for another account cleared the session")
	}

	svc.DiscardSession(acct)
	if svc.Active() != nil {
		t.Error("DiscardSession() left the session active")
	}
	if len(seen) != 3 || seen[2] != nil {
		t.Fatalf("listener not notified of discard, got %v", seen)
	}

	unsub()
	svc.ActivateSession(acct)
	if len(seen) != 3 {
		t.Error("unsubscribed listener still invoked")
	}
}

func TestDurableAccounts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateDurableAccount(ctx, "dana@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("CreateDurableAccount() error: %v", err)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateDurableAccount(ctx, "dana@example.com", "otherpassword")
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("err = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("sign in and validate session", func(t *testing.T) {
		acct, session, err := svc.SignInDurable(ctx, "dana@example.com", "hunter2hunter2")
		if err != nil {
			t.Fatalf("SignInDurable() error: %v", err)
		}
		if svc.Active() == nil || svc.Active().ID != acct.ID {
			t.Error("sign-in did not activate the session")
		}

		resolved, err := svc.ValidateSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("ValidateSession() error: %v", err)
		}
		if resolved == nil || resolved.ID != acct.ID {
			t.Error("session did not resolve to the account")
		}

		if err := svc.SignOut(ctx, session.ID); err != nil {
			t.Fatalf("SignOut() error: %v", err)
		}
		if svc.Active() != nil {
			t.Error("sign-out left the session active")
		}
		resolved, err = svc.ValidateSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("ValidateSession() error: %v", err)
		}
		if resolved != nil {
			t.Error("closed session still resolves")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.SignInDurable(ctx, "dana@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.SignInDurable(ctx, "nobody@example.com", "whatever")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestDeviceTokens(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	svc := setupService(t)
	ctx := context.Background()

	acct, token, err := svc.CreateEphemeralAccount(ctx)
	if err != nil {
		t.Fatalf("CreateEphemeralAccount() error: %v", err)
	}
	if !acct.IsEphemeral() {
		t.Error("device account is not ephemeral")
	}

	t.Run("round trip", func(t *testing.T) {
		resolved, err := svc.AccountForDeviceToken(ctx, token)
		if err != nil {
			t.Fatalf("AccountForDeviceToken() error: %v", err)
		}
		if resolved == nil || resolved.ID != acct.ID {
			t.Error("token did not resolve to its account")
		}
	})

	forge := func(t *testing.T, secret string, claims jwt.MapClaims) string {
		t.Helper()
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("failed to sign test token: %v", err)
		}
		return forged
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", forge(t, "other-secret", jwt.MapClaims{"sub": acct.ID, "kind": "device"})},
		{"wrong kind", forge(t, "test-token-secret", jwt.MapClaims{"sub": acct.ID, "kind": "session"})},
		{"missing subject", forge(t, "test-token-secret", jwt.MapClaims{"kind": "device"})},
		{"dangling subject", forge(t, "test-token-secret", jwt.MapClaims{"sub": "gone", "kind": "device"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := svc.AccountForDeviceToken(ctx, tt.token)
			if err != nil {
				t.Fatalf("AccountForDeviceToken() error: %v", err)
			}
			if resolved != nil {
				t.Errorf("token resolved to account %s, want nil", resolved.ID)
			}
		})
	}

	t.Run("durable subject is rejected", func(t *testing.T) {
		durable, err := svc.CreateDurableAccount(ctx, "device-test@example.com", "hunter2hunter2")
		if err != nil {
			t.Fatalf("CreateDurableAccount() error: %v", err)
		}
		forged := forge(t, "test-token-secret", jwt.MapClaims{"sub": durable.ID, "kind": "device"})
		resolved, err := svc.AccountForDeviceToken(ctx, forged)
		if err != nil {
			t.Fatalf("AccountForDeviceToken() error: %v", err)
		}
		if resolved != nil {
			t.Error("device token for a durable account resolved")
		}
	})
}

func TestPasswordReset(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateDurableAccount(ctx, "reset@example.com", "originalpass"); err != nil {
		t.Fatalf("CreateDurableAccount() error: %v", err)
	}

	t.Run("unknown email is silent", func(t *testing.T) {
		reset, err := svc.RequestPasswordReset(ctx, "nobody@example.com", time.Hour)
		if err != nil {
			t.Fatalf("RequestPasswordReset() error: %v", err)
		}
		if reset != nil {
			t.Error("reset token issued for an unknown email")
		}
	})

	reset, err := svc.RequestPasswordReset(ctx, "reset@example.com", time.Hour)
	if err != nil {
		t.Fatalf("RequestPasswordReset() error: %v", err)
	}
	if reset == nil {
		t.Fatal("no reset token issued")
	}

	ok, err := svc.ResetPassword(ctx, reset.Token, "freshpassword")
	if err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if !ok {
		t.Fatal("reset token rejected")
	}

	if _, _, err := svc.SignInDurable(ctx, "reset@example.com", "freshpassword"); err != nil {
		t.Errorf("SignInDurable() with new password error: %v", err)
	}
	if _, _, err := svc.SignInDurable(ctx, "reset@example.com", "originalpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}

	t.Run("token is single use", func(t *testing.T) {
		ok, err := svc.ResetPassword(ctx, reset.Token, "anotherpass")
		if err != nil {
			t.Fatalf("ResetPassword() error: %v", err)
		}
		if ok {
			t.Error("consumed token accepted again")
		}
	})
}
