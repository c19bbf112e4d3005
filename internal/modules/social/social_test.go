package social

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/modules/notification"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
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
	if err := db.AutoMigrate(
		&models.UserModel{}, &models.FollowingModel{},
		&models.TagModel{}, &models.TagFollowModel{},
		&models.SourceModel{}, &models.NoteModel{},
		&models.ActionModel{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Email: name + "@example.com", Username: "@" + name, FullName: name, Password: "x", IsActive: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func TestFollowRejectsSelf(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	u := createTestUser(t, db, "narcissus")

	_, err := svc.Follow(context.Background(), u.ID, u.ID)
	if !errors.Is(err, ErrSelfFollow) || !errors.Is(err, content.ErrValidation) {
		t.Fatalf("expected self-follow validation error, got %v", err)
	}
}

func TestFollowUnfollow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	a := createTestUser(t, db, "a")
	b := createTestUser(t, db, "b")
	c := createTestUser(t, db, "c")

	created, err := svc.Follow(ctx, a.ID, b.ID)
	if err != nil || !created {
		t.Fatalf("first follow: created=%v err=%v", created, err)
	}
	if created, err = svc.Follow(ctx, a.ID, b.ID); err != nil || created {
		t.Fatalf("second follow should be a no-op: created=%v err=%v", created, err)
	}
	if _, err := svc.Follow(ctx, c.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	followers, pag, err := svc.Followers(ctx, b.ID, pagination.Query{Page: 1, Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if pag.Total != 2 || len(followers) != 2 {
		t.Fatalf("expected 2 followers, got total=%d len=%d", pag.Total, len(followers))
	}

	following, _, err := svc.Following(ctx, a.ID, pagination.Query{Page: 1, Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(following) != 1 || following[0].ID != b.ID {
		t.Fatalf("a should follow only b, got %v", following)
	}

	p, err := svc.Profile(ctx, b.Username, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Followers != 2 || p.Following != 0 || !p.IsFollowed {
		t.Errorf("unexpected profile %+v", p)
	}

	if err := svc.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if ok, _ := svc.IsFollowing(ctx, a.ID, b.ID); ok {
		t.Error("still following after unfollow")
	}
}

type captured struct {
	mu         sync.Mutex
	deliveries []notification.Delivery
}

func (c *captured) Deliver(_ context.Context, d notification.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, d)
	return nil
}

type noNotes struct{}

func (noNotes) ProfileNotes(c *gin.Context, authorID string) { response.OK(c, []string{}) }

func headerAuth(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(middleware.ContextKeyUserID, id)
		} else if required {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

func TestHandlerFollowNotifies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	sent := &captured{}
	h := NewHandler(NewService(db, nil), noNotes{},
		actions.NewRecorder(db),
		notification.NewDispatcher(notification.NewGormDirectory(db), sent),
		nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), headerAuth(true), headerAuth(false))

	fan := createTestUser(t, db, "fan")
	star := createTestUser(t, db, "star")

	do := func(method, path, userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if userID != "" {
			req.Header.Set("X-User-ID", userID)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(http.MethodPost, "/api/v1/users/@star/follow", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous follow: expected 401, got %d", w.Code)
	}
	if w := do(http.MethodPost, "/api/v1/users/@star/follow", star.ID); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("self follow: expected 422, got %d", w.Code)
	}
	if w := do(http.MethodPost, "/api/v1/users/@nobody/follow", fan.ID); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", w.Code)
	}
	if w := do(http.MethodPost, "/api/v1/users/@star/follow", fan.ID); w.Code != http.StatusNoContent {
		t.Fatalf("follow: expected 204, got %d", w.Code)
	}

	if len(sent.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sent.deliveries))
	}
	d := sent.deliveries[0]
	if d.Verb != actions.VerbFollows || len(d.Recipients) != 1 || d.Recipients[0] != star.ID {
		t.Errorf("unexpected delivery %+v", d)
	}

	w := do(http.MethodGet, "/api/v1/users/@star", fan.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", w.Code)
	}
	var p Profile
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.Followers != 1 || !p.IsFollowed {
		t.Errorf("unexpected profile %+v", p)
	}

	if w := do(http.MethodGet, "/api/v1/users/@star/notes", ""); w.Code != http.StatusOK {
		t.Errorf("notes: expected 200, got %d", w.Code)
	}
}
