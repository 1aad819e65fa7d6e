package auth

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/store"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// testEnv sets up an in-memory database with auth migrations and returns
// the UserStore, TokenService, and Service for testing.
func testEnv(t *testing.T) (*UserStore, *TokenService, *Service) {
	t.Helper()

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	userStore, err := NewUserStore(ctx, db)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}

	tokens := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	svc := NewService(userStore, tokens, testLogger())
	return userStore, tokens, svc
}

func TestSetup_CreatesAdmin(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	needs, err := svc.NeedsSetup(ctx)
	if err != nil {
		t.Fatalf("NeedsSetup: %v", err)
	}
	if !needs {
		t.Fatal("expected NeedsSetup=true before any users created")
	}

	user, err := svc.Setup(ctx, "runner", "runner@example.com", "securepassword")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if user.Role != RoleAdmin {
		t.Errorf("user.Role = %q, want admin", user.Role)
	}

	needs, err = svc.NeedsSetup(ctx)
	if err != nil {
		t.Fatalf("NeedsSetup after setup: %v", err)
	}
	if needs {
		t.Error("expected NeedsSetup=false after setup")
	}
}

func TestSetup_OnlyOnce(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, "runner", "runner@example.com", "securepassword")
	if err != nil {
		t.Fatalf("first Setup: %v", err)
	}

	_, err = svc.Setup(ctx, "runner2", "runner2@example.com", "securepassword")
	if err != ErrSetupComplete {
		t.Errorf("second Setup err = %v, want ErrSetupComplete", err)
	}
}

func TestSetup_WeakPassword(t *testing.T) {
	_, _, svc := testEnv(t)

	_, err := svc.Setup(context.Background(), "runner", "runner@example.com", "short")
	if err == nil {
		t.Error("expected error for short password")
	}
}

func TestLogin_Success(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	if _, err := svc.Setup(ctx, "runner", "runner@example.com", "securepassword"); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	pair, err := svc.Login(ctx, "runner", "securepassword")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected non-empty token pair")
	}
	if pair.ExpiresIn <= 0 {
		t.Error("expected positive ExpiresIn")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	_, _ = svc.Setup(ctx, "runner", "runner@example.com", "securepassword")

	_, err := svc.Login(ctx, "runner", "wrongpassword")
	if err != ErrInvalidCredentials {
		t.Errorf("Login err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	_, _, svc := testEnv(t)

	_, err := svc.Login(context.Background(), "nobody", "password")
	if err != ErrInvalidCredentials {
		t.Errorf("Login err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_DisabledUser(t *testing.T) {
	us, _, svc := testEnv(t)
	ctx := context.Background()

	user, _ := svc.Setup(ctx, "runner", "runner@example.com", "securepassword")
	user.Disabled = true
	_ = us.UpdateUser(ctx, user)

	_, err := svc.Login(ctx, "runner", "securepassword")
	if err != ErrUserDisabled {
		t.Errorf("Login err = %v, want ErrUserDisabled", err)
	}
}

func TestRefresh_Rotation(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	_, _ = svc.Setup(ctx, "runner", "runner@example.com", "securepassword")
	pair1, _ := svc.Login(ctx, "runner", "securepassword")

	pair2, err := svc.Refresh(ctx, pair1.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair2.RefreshToken == pair1.RefreshToken {
		t.Error("refresh should issue a new refresh token (rotation)")
	}

	// The rotated-out token must be dead.
	_, err = svc.Refresh(ctx, pair1.RefreshToken)
	if err != ErrInvalidToken {
		t.Errorf("reuse of old refresh token: err = %v, want ErrInvalidToken", err)
	}

	pair3, err := svc.Refresh(ctx, pair2.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh with new token: %v", err)
	}
	if pair3.AccessToken == "" {
		t.Error("expected non-empty access token from second refresh")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	_, _, svc := testEnv(t)

	_, err := svc.Refresh(context.Background(), "totally-fake-token")
	if err != ErrInvalidToken {
		t.Errorf("Refresh err = %v, want ErrInvalidToken", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	_, _ = svc.Setup(ctx, "runner", "runner@example.com", "securepassword")
	pair, _ := svc.Login(ctx, "runner", "securepassword")

	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != ErrInvalidToken {
		t.Errorf("Refresh after logout: err = %v, want ErrInvalidToken", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	_, _, svc := testEnv(t)

	if err := svc.Logout(context.Background(), "nonexistent-token"); err != nil {
		t.Errorf("Logout of nonexistent token: %v", err)
	}
}

func TestUserCRUD(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	admin, _ := svc.Setup(ctx, "runner", "runner@example.com", "securepassword")

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers len = %d, want 1", len(users))
	}

	got, err := svc.GetUser(ctx, admin.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "runner" {
		t.Errorf("GetUser.Username = %q, want runner", got.Username)
	}

	updated, err := svc.UpdateUser(ctx, admin.ID, "coach@example.com", RoleCoach, false)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != RoleCoach {
		t.Errorf("UpdateUser.Role = %q, want coach", updated.Role)
	}

	if err := svc.DeleteUser(ctx, admin.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err = svc.GetUser(ctx, admin.ID); err != ErrUserNotFound {
		t.Errorf("GetUser after delete: err = %v, want ErrUserNotFound", err)
	}
}

func TestDisableUserRevokesSessions(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	admin, _ := svc.Setup(ctx, "runner", "runner@example.com", "securepassword")
	pair, _ := svc.Login(ctx, "runner", "securepassword")

	if _, err := svc.UpdateUser(ctx, admin.ID, admin.Email, RoleAdmin, true); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	_, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != ErrInvalidToken {
		t.Errorf("Refresh after disable: err = %v, want ErrInvalidToken", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	_, _, svc := testEnv(t)

	err := svc.DeleteUser(context.Background(), "nonexistent-id")
	if err != ErrUserNotFound {
		t.Errorf("DeleteUser err = %v, want ErrUserNotFound", err)
	}
}
