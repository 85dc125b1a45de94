package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/guitar-ai/internal/model"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testUser(id string) *model.User {
	return &model.User{ID: id, Username: "name-" + id, Role: model.RoleUser}
}

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("short", 0); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}

	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
	if ts.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want default %v", ts.TTL(), DefaultTokenTTL)
	}
}

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(testUser("user-123"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// header.payload.signature
	if strings.Count(token, ".") != 2 {
		t.Errorf("Generate() token doesn't look like a JWT: %q", token)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	user := &model.User{ID: "user-abc-123", Username: "admin", Role: model.RoleAdmin}

	token, err := ts.Generate(user)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := model.Principal{UserID: "user-abc-123", Username: "admin", Role: model.RoleAdmin}
	if got != want {
		t.Errorf("Validate() = %+v, want %+v", got, want)
	}
}

func TestValidate_UnknownRoleFallsBackToUser(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate(&model.User{ID: "u1", Role: "superuser"})
	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleUser)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	good, _ := ts.Generate(testUser("user-123"))
	expired, _ := ts.GenerateWithDuration(testUser("user-123"), -time.Second)
	foreign, _ := other.Generate(testUser("user-123"))
	noSubject, _ := ts.Generate(&model.User{Username: "ghost"})

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "tampered", token: good[:len(good)-3] + "xxx"},
		{name: "wrong secret", token: foreign},
		{name: "no subject", token: noSubject},
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Fatal("Validate() should return an error")
			}
		})
	}
}
