package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/model"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is the bcrypt minimum, so tests stay fast.
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, quietLogger()), ts
}

// =========================================================================
// CreateUser / Login TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "slash", "sweet-child-o-mine", model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == "" || user.Role != model.RoleAdmin {
		t.Errorf("CreateUser() = %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "sweet-child-o-mine" {
		t.Error("password should be stored as a bcrypt hash")
	}

	if _, err := svc.CreateUser(ctx, "slash", "another-password", model.RoleUser); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate username error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "long-enough-pw"},
		{"bad characters", "bad name!", "long-enough-pw"},
		{"leading dot", ".hidden", "long-enough-pw"},
		{"short password", "valid_name", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.username, tt.password, model.RoleUser)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("CreateUser(%q, %q) error = %v, want ErrValidation", tt.username, tt.password, err)
			}
		})
	}
}

func TestCreateUser_UnknownRoleBecomesUser(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	user, err := svc.CreateUser(context.Background(), "player", "long-enough-pw", "root")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleUser)
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc, tokens := newTestAuthService(t, repo)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "angus", "highway-to-hell", model.RoleUser)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	result, err := svc.Login(ctx, "angus", "highway-to-hell")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	p, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	want := model.Principal{UserID: created.ID, Username: "angus", Role: model.RoleUser}
	if p != want {
		t.Errorf("token principal = %+v, want %+v", p, want)
	}
}

func TestLogin_Rejected(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "angus", "highway-to-hell", model.RoleUser); err != nil {
		t.Fatalf("setup: %v", err)
	}
	// A GitHub-only account has no password hash.
	ghID := int64(5)
	if err := repo.Create(ctx, &model.User{Username: "octo", GitHubID: &ghID}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name, username, password string
	}{
		{"wrong password", "angus", "stairway-to-heaven"},
		{"unknown user", "malcolm", "highway-to-hell"},
		{"github-only account", "octo", "anything-at-all"},
		{"empty password", "angus", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
			}
			if err.Error() != "invalid username or password" {
				t.Errorf("Login() message = %q; should not reveal which part was wrong", err.Error())
			}
		})
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("database is on fire")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), "angus", "highway-to-hell")
	if err == nil || errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want the repository failure", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octocat@github.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.Token == "" || result.User.ID == "" {
		t.Fatalf("LoginOrRegisterGitHub() = %+v", result)
	}
	if result.User.Username != "octocat" || result.User.Role != model.RoleUser {
		t.Errorf("User = %+v", result.User)
	}
}

func TestLoginOrRegisterGitHub_ExistingUserKeepsIdentity(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	first, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "old-login", Email: "old@email.com"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}

	second, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "new-login", Email: "new@email.com"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("second login created a new account: %s != %s", second.User.ID, first.User.ID)
	}
	if second.User.Username != "old-login" || second.User.Email != "new@email.com" {
		t.Errorf("User after second login = %+v", second.User)
	}
}

func TestLoginOrRegisterGitHub_UsernameTaken(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "octocat", "long-enough-pw", model.RoleUser); err != nil {
		t.Fatalf("setup: %v", err)
	}

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 7, Login: "octocat"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.Username != "octocat-gh7" {
		t.Errorf("Username = %q, want octocat-gh7", result.User.Username)
	}
}

func TestLoginOrRegisterGitHub_Errors(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Error("LoginOrRegisterGitHub(nil) should return an error")
	}

	repo.err = errors.New("database is on fire")
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user"}); err == nil {
		t.Error("LoginOrRegisterGitHub() should propagate repository errors")
	}
}

// =========================================================================
// Me TESTS
// =========================================================================

func TestMe(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "findme", "long-enough-pw", model.RoleUser)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	user, err := svc.Me(ctx, model.Principal{UserID: created.ID})
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.Username != "findme" {
		t.Errorf("Username = %q, want findme", user.Username)
	}

	if _, err := svc.Me(ctx, model.Principal{UserID: "deleted-user"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Me(unknown) error = %v, want ErrNotFound", err)
	}
}
