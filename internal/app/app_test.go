package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/noted-space/noted/internal/config"
	"github.com/noted-space/noted/internal/database"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	pkgcron "github.com/noted-space/noted/internal/pkg/cron"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestApp(t *testing.T) *App {
	t.Helper()
	return setupApp(t, "env: test\n")
}

// setupLiveApp records actions and sends notifications, but still renders
// Markdown locally.
func setupLiveApp(t *testing.T) *App {
	t.Helper()
	return setupApp(t, "env: production\nmarkdown: {offline: true}\n")
}

func setupApp(t *testing.T, yml string) *App {
	t.Helper()
	cfg, err := config.Parse([]byte(yml))
	if err != nil {
		t.Fatal(err)
	}
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	a := newApp(zap.NewNop(), cfg, db, nil)
	t.Cleanup(a.cancel)
	return a
}

func call(t *testing.T, a *App, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, a *App, email, name string) string {
	t.Helper()
	w := call(t, a, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": email, "password": "password123", "full_name": name,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %s", email, w.Code, w.Body.String())
	}
	w = call(t, a, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": email, "password": "password123",
	})
	var out struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Token == "" {
		t.Fatalf("signin %s: %d %s", email, w.Code, w.Body.String())
	}
	return out.Token
}

func TestPublishFlow(t *testing.T) {
	a := setupLiveApp(t)
	authorToken := signup(t, a, "author@example.com", "Ann Author")
	fanToken := signup(t, a, "fan@example.com", "Fred Fan")

	if w := call(t, a, http.MethodPost, "/api/v1/users/@ann.author/follow", fanToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("follow: %d %s", w.Code, w.Body.String())
	}

	w := call(t, a, http.MethodPost, "/api/v1/notes", authorToken, map[string]interface{}{
		"title": "Hello world",
		"body":  "# Hi\n\nSome **markdown** here.",
		"tags":  "go, notes",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create note: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Slug string `json:"slug"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Slug != "hello-world" {
		t.Errorf("slug = %q", created.Slug)
	}

	w = call(t, a, http.MethodGet, "/api/v1/notifications/unread", fanToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unread: %d", w.Code)
	}
	var unread struct {
		Count int64 `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &unread)
	if unread.Count != 1 {
		t.Errorf("fan should have one notification, body %s", w.Body.String())
	}

	// The author follows nobody; the fan's feed shows the author's note.
	w = call(t, a, http.MethodGet, "/api/v1/feed", fanToken, nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("creates")) {
		t.Errorf("feed: %d %s", w.Code, w.Body.String())
	}

	if w := call(t, a, http.MethodGet, "/api/v1/users/@ann.author/notes", "", nil); w.Code != http.StatusOK {
		t.Errorf("profile notes: %d", w.Code)
	}
	if w := call(t, a, http.MethodGet, "/api/v1/tags/go", "", nil); w.Code != http.StatusOK {
		t.Errorf("tag: %d", w.Code)
	}
	if w := call(t, a, http.MethodGet, "/api/v1/cron-task", authorToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("cron-task for non-staff: %d", w.Code)
	}
}

func TestTestModeRecordsNothing(t *testing.T) {
	a := setupTestApp(t)
	authorToken := signup(t, a, "author@example.com", "Ann Author")
	fanToken := signup(t, a, "fan@example.com", "Fred Fan")

	call(t, a, http.MethodPost, "/api/v1/users/@ann.author/follow", fanToken, nil)
	w := call(t, a, http.MethodPost, "/api/v1/notes", authorToken, map[string]interface{}{
		"title": "Quiet note",
		"body":  "nothing to announce",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create note: %d %s", w.Code, w.Body.String())
	}

	var actionsCount, notifications int64
	a.db.Model(&models.ActionModel{}).Count(&actionsCount)
	a.db.Model(&models.NotificationModel{}).Count(&notifications)
	if actionsCount != 0 || notifications != 0 {
		t.Errorf("test mode wrote %d actions and %d notifications", actionsCount, notifications)
	}

	var user models.UserModel
	if err := a.db.First(&user).Error; err != nil {
		t.Fatal(err)
	}
	ok, err := a.buildServices().recorder.Record(context.Background(), actions.UserRef{ID: user.ID}, actions.VerbLikes, actions.NoteRef{ID: "n1"})
	if ok || err != nil {
		t.Errorf("Record in test mode = %v, %v; want false, nil", ok, err)
	}
	a.db.Model(&models.ActionModel{}).Count(&actionsCount)
	if actionsCount != 0 {
		t.Errorf("Record in test mode inserted %d rows", actionsCount)
	}
}

func TestHealthAndNoRoute(t *testing.T) {
	a := setupTestApp(t)
	if w := call(t, a, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health: %d", w.Code)
	}
	if w := call(t, a, http.MethodGet, "/api/v1/nope", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", w.Code)
	}
}

func TestReportJob(t *testing.T) {
	a := setupTestApp(t)
	signup(t, a, "r@example.com", "Rita")

	r, err := a.buildReport(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if r.Users != 1 || r.NewUsers != 1 {
		t.Errorf("unexpected report %+v", r)
	}

	res, err := a.sched.RunSync(context.Background(), "report")
	if err != nil || res.Status != pkgcron.StatusSucceeded {
		t.Errorf("report job: %+v %v", res, err)
	}
	if _, err := a.sched.GetTask("actions_retention"); err == nil {
		t.Error("retention job should not be registered when retention is 0")
	}
}

func TestMatchOriginPattern(t *testing.T) {
	tests := []struct {
		pattern, host string
		want          bool
	}{
		{"noted.example", "noted.example", true},
		{"*.noted.example", "app.noted.example", true},
		{"*.noted.example", "noted.example.evil", false},
		{"localhost:*", "localhost:3000", true},
		{"localhost:*", "otherhost:3000", false},
		{"*", "anything.example", true},
		{"Noted.Example", "noted.example", true},
	}
	for _, tt := range tests {
		if got := matchOriginPattern(tt.pattern, tt.host); got != tt.want {
			t.Errorf("matchOriginPattern(%q, %q) = %v", tt.pattern, tt.host, got)
		}
	}
	if got := extractOriginHost("https://app.noted.example:8443"); got != "app.noted.example:8443" {
		t.Errorf("extractOriginHost = %q", got)
	}
}

func TestParseTimezoneLocation(t *testing.T) {
	if _, err := parseTimezoneLocation("Europe/Moscow"); err != nil {
		t.Errorf("IANA zone: %v", err)
	}
	loc, err := parseTimezoneLocation("+03:00")
	if err != nil {
		t.Fatal(err)
	}
	if _, off := time.Now().In(loc).Zone(); off != 3*3600 {
		t.Errorf("offset = %d", off)
	}
	if _, err := parseTimezoneLocation("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
