package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.UserModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestBaseUsername(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"John Smith", "@john.smith"},
		{"Иван Петров", "@иван.петров"},
		{"  ada  ", "@ada"},
	}
	for _, tt := range tests {
		if got := BaseUsername(tt.name); got != tt.want {
			t.Errorf("BaseUsername(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

type stubRecorder struct {
	verbs []actions.Verb
	actor actions.Entity
}

func (r *stubRecorder) Record(_ context.Context, actor actions.Entity, verb actions.Verb, _ actions.Entity) (bool, error) {
	r.actor = actor
	r.verbs = append(r.verbs, verb)
	return true, nil
}

func TestSignupRecordsNewAction(t *testing.T) {
	rec := &stubRecorder{}
	svc := NewService(setupTestDB(t), WithRecorder(rec))

	u, err := svc.Signup(context.Background(), SignupDTO{
		Email:    "new@example.com",
		Password: "password123",
		FullName: "New Person",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if len(rec.verbs) != 1 || rec.verbs[0] != actions.VerbNew {
		t.Fatalf("recorded verbs = %v, want [new]", rec.verbs)
	}
	if rec.actor.EntityID() != u.ID {
		t.Errorf("actor = %s, want %s", rec.actor.EntityID(), u.ID)
	}
}

func TestSignupGeneratesUniqueUsernames(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	want := []string{"@john.smith", "@john.smith2", "@john.smith3"}
	for i, w := range want {
		u, err := svc.Signup(ctx, SignupDTO{
			Email:    "john" + string(rune('a'+i)) + "@example.com",
			Password: "password123",
			FullName: "John Smith",
		})
		if err != nil {
			t.Fatalf("Signup #%d: %v", i, err)
		}
		if u.Username != w {
			t.Errorf("username #%d = %q, want %q", i, u.Username, w)
		}
		if u.Password == "password123" {
			t.Error("password stored in plain text")
		}
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()
	dto := SignupDTO{Email: "Dup@Example.com", Password: "password123", FullName: "Dup"}
	if _, err := svc.Signup(ctx, dto); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	dto.Email = "dup@example.com"
	if _, err := svc.Signup(ctx, dto); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignin(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()
	if _, err := svc.Signup(ctx, SignupDTO{Email: "a@example.com", Password: "password123", FullName: "A"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, _, _, err := svc.Signin(ctx, SigninDTO{Email: "a@example.com", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Signin(ctx, SigninDTO{Email: "nobody@example.com", Password: "password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	token, _, user, err := svc.Signin(ctx, SigninDTO{Email: "A@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}
	if token == "" || user.LastLogin == nil {
		t.Fatalf("expected token and last_login, got %q %v", token, user.LastLogin)
	}
}

func TestHandlerSignupSigninMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	r := gin.New()
	NewHandler(NewService(db)).RegisterRoutes(r.Group("/api/v1"), middleware.Auth(db))

	post := func(path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(body)
		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/auth/signup", map[string]string{"email": "not-an-email", "password": "password123", "full_name": "X"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email: expected 422, got %d", w.Code)
	}

	w = post("/api/v1/auth/signup", map[string]string{"email": "me@example.com", "password": "password123", "full_name": "Me Myself"})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = post("/api/v1/auth/signin", map[string]string{"email": "me@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var signed struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &signed)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	var me models.UserModel
	json.Unmarshal(w.Body.Bytes(), &me)
	if me.Username != "@me.myself" {
		t.Errorf("me.username = %q", me.Username)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me: expected 401, got %d", w.Code)
	}
}
