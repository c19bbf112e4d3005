package note

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/modules/content/source"
	"github.com/noted-space/noted/internal/modules/notification"
	"github.com/noted-space/noted/internal/modules/processing/langdetect"
	"github.com/noted-space/noted/internal/pkg/pagination"
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
		&models.ActionModel{}, &models.NotificationModel{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Email: name + "@example.com", Username: "@" + name, FullName: name, Password: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, md string) string { return "<p>" + md + "</p>" }

type stubDetector struct{ lang langdetect.Lang }

func (d stubDetector) Detect(string) langdetect.Lang { return d.lang }

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

func (c *captured) byVerb(verb actions.Verb) []notification.Delivery {
	var out []notification.Delivery
	for _, d := range c.deliveries {
		if d.Verb == verb {
			out = append(out, d)
		}
	}
	return out
}

type fixture struct {
	db   *gorm.DB
	svc  *Service
	sent *captured
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	sent := &captured{}
	svc := NewService(db, stubRenderer{}, stubDetector{lang: langdetect.English},
		WithRecorder(actions.NewRecorder(db)),
		WithDispatcher(notification.NewDispatcher(notification.NewGormDirectory(db), sent)),
	)
	return &fixture{db: db, svc: svc, sent: sent}
}

func TestCreatePipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := createTestUser(t, f.db, "author")
	fan := createTestUser(t, f.db, "fan")
	tagFan := createTestUser(t, f.db, "tagfan")
	f.db.Create(&models.FollowingModel{FollowerID: fan.ID, FollowedID: author.ID})

	goTag := models.TagModel{Name: "go", Slug: "go"}
	f.db.Create(&goTag)
	f.db.Create(&models.TagFollowModel{UserID: tagFan.ID, TagID: goTag.ID})

	note, err := f.svc.Create(ctx, author.ID, CreateNoteDTO{
		Title:  "Заметки о Go",
		Body:   "Some **text**",
		Tags:   "Go, Web Dev",
		Source: source.Input{Type: models.SourceBook, Title: "The Go Programming Language"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if note.Slug != "zametki-o-go" {
		t.Errorf("slug = %q", note.Slug)
	}
	if note.Lang != "en" || note.BodyHTML != "<p>Some **text**</p>" {
		t.Errorf("lang/html = %q / %q", note.Lang, note.BodyHTML)
	}
	if len(note.Tags) != 2 || note.SourceID == nil {
		t.Fatalf("tags/source not attached: %+v", note)
	}

	var acts []models.ActionModel
	f.db.Find(&acts)
	if len(acts) != 1 || acts[0].ActorID != author.ID || acts[0].Verb != "creates" {
		t.Errorf("unexpected actions: %+v", acts)
	}

	creates := f.sent.byVerb(actions.VerbCreates)
	if len(creates) != 2 {
		t.Fatalf("expected author and tag deliveries, got %d", len(creates))
	}
	if creates[0].Recipients[0] != fan.ID {
		t.Errorf("author followers = %v", creates[0].Recipients)
	}
	if _, ok := creates[1].Actor.(actions.TagRef); !ok || creates[1].Recipients[0] != tagFan.ID {
		t.Errorf("tag delivery = %+v", creates[1])
	}
}

func TestCreateSameTitleGetsSuffix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")

	first, err := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Hello", Body: "a"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Hello", Body: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Slug != "hello" || !strings.HasPrefix(second.Slug, "hello-") || len(second.Slug) != len("hello-")+8 {
		t.Errorf("slugs = %q, %q", first.Slug, second.Slug)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		dto  CreateNoteDTO
	}{
		{"no title", CreateNoteDTO{Body: "x"}},
		{"long title", CreateNoteDTO{Title: strings.Repeat("t", 101), Body: "x"}},
		{"no body", CreateNoteDTO{Title: "t", Body: "  "}},
		{"long summary", CreateNoteDTO{Title: "t", Body: "x", Summary: strings.Repeat("s", 251)}},
		{"too many tags", CreateNoteDTO{Title: "t", Body: "x", Tags: "a,b,c,d"}},
		{"bad source type", CreateNoteDTO{Title: "t", Body: "x", Source: source.Input{Type: "42", Title: "s"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, "u", tt.dto); !errors.Is(err, content.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDraftVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")
	other := createTestUser(t, f.db, "other")
	f.db.Create(&models.FollowingModel{FollowerID: other.ID, FollowedID: author.ID})

	note, err := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Secret", Body: "x", Draft: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.sent.deliveries) != 0 {
		t.Errorf("draft should not notify, got %d deliveries", len(f.sent.deliveries))
	}

	if got, _ := f.svc.GetBySlug(ctx, note.Slug, other.ID); got != nil {
		t.Error("draft visible to another user")
	}
	if got, _ := f.svc.GetBySlug(ctx, note.Slug, ""); got != nil {
		t.Error("draft visible to anonymous viewer")
	}
	if got, _ := f.svc.GetBySlug(ctx, note.Slug, author.ID); got == nil {
		t.Error("draft hidden from its author")
	}
	public, _, _ := f.svc.ListPublic(ctx, OrderCreated, nil, pagination.Query{Page: 1, Size: 10})
	if len(public) != 0 {
		t.Errorf("draft in public listing")
	}

	published := false
	if _, err := f.svc.Update(ctx, author.ID, note.Slug, UpdateNoteDTO{Draft: &published}); err != nil {
		t.Fatal(err)
	}
	if got := f.sent.byVerb(actions.VerbCreates); len(got) != 1 || got[0].Recipients[0] != other.ID {
		t.Errorf("publishing should notify followers, got %+v", got)
	}
}

func TestUpdateKeepsSlugAndRerenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")
	stranger := createTestUser(t, f.db, "stranger")

	note, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Original", Body: "old", Tags: "a"})

	title, body, tags := "Renamed", "new", "b"
	updated, err := f.svc.Update(ctx, author.ID, note.Slug, UpdateNoteDTO{Title: &title, Body: &body, Tags: &tags})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "original" || updated.Title != "Renamed" || updated.BodyHTML != "<p>new</p>" {
		t.Errorf("unexpected update: %+v", updated)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Name != "b" {
		t.Errorf("tags = %+v", updated.Tags)
	}
	var oldTag int64
	f.db.Model(&models.TagModel{}).Where("name = ?", "a").Count(&oldTag)
	if oldTag != 0 {
		t.Error("replaced tag should be collected")
	}

	if _, err := f.svc.Update(ctx, stranger.ID, note.Slug, UpdateNoteDTO{Title: &title}); !errors.Is(err, content.ErrForbidden) {
		t.Errorf("stranger update = %v, want ErrForbidden", err)
	}
}

func TestDeleteCollectsSourceAndTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")

	src := source.Input{Title: "Shared book"}
	keep, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Keep", Body: "x", Tags: "shared", Source: src})
	drop, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Drop", Body: "x", Tags: "shared, lonely", Source: src})

	if err := f.svc.Delete(ctx, author.ID, drop.Slug); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var sources, tags int64
	f.db.Model(&models.SourceModel{}).Count(&sources)
	f.db.Model(&models.TagModel{}).Count(&tags)
	if sources != 1 || tags != 1 {
		t.Errorf("after first delete: sources=%d tags=%d, want 1/1", sources, tags)
	}

	if err := f.svc.Delete(ctx, author.ID, keep.Slug); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	f.db.Model(&models.SourceModel{}).Count(&sources)
	f.db.Model(&models.TagModel{}).Count(&tags)
	if sources != 0 || tags != 0 {
		t.Errorf("after last delete: sources=%d tags=%d, want 0/0", sources, tags)
	}
}

func TestLikeBookmarkPin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")
	reader := createTestUser(t, f.db, "reader")

	note, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Likeable", Body: "x"})

	liked, err := f.svc.ToggleLike(ctx, reader.ID, note.Slug)
	if err != nil || !liked {
		t.Fatalf("ToggleLike = %v, %v", liked, err)
	}
	likes := f.sent.byVerb(actions.VerbLikes)
	if len(likes) != 1 || likes[0].Recipients[0] != author.ID {
		t.Errorf("like deliveries = %+v", likes)
	}
	if liked, _ = f.svc.ToggleLike(ctx, reader.ID, note.Slug); liked {
		t.Error("second toggle should unlike")
	}

	marked, err := f.svc.ToggleBookmark(ctx, reader.ID, note.Slug)
	if err != nil || !marked {
		t.Fatalf("ToggleBookmark = %v, %v", marked, err)
	}
	if got := f.sent.byVerb(actions.VerbBookmarks); len(got) != 0 {
		t.Errorf("bookmark should not notify, got %+v", got)
	}
	stats, _ := f.svc.Stats(ctx, note.ID, reader.ID)
	if stats.Likes != 0 || stats.Bookmarks != 1 || !stats.Bookmarked {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := f.svc.TogglePin(ctx, reader.ID, note.Slug); !errors.Is(err, content.ErrForbidden) {
		t.Errorf("reader pin = %v, want ErrForbidden", err)
	}
	if pinned, err := f.svc.TogglePin(ctx, author.ID, note.Slug); err != nil || !pinned {
		t.Errorf("author pin = %v, %v", pinned, err)
	}
}

func TestForkAndDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")
	reader := createTestUser(t, f.db, "reader")

	orig, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{
		Title:  "Forkable",
		Body:   "body",
		Tags:   "go",
		Source: source.Input{Title: "Blog", Link: "https://example.com"},
	})

	fork, err := f.svc.Fork(ctx, reader.ID, orig.Slug)
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if fork.ForkID == nil || *fork.ForkID != orig.ID || *fork.AuthorID != reader.ID {
		t.Errorf("fork links wrong: %+v", fork)
	}
	if fork.Slug == orig.Slug || fork.BodyRaw != "body" || len(fork.Tags) != 1 || *fork.SourceID != *orig.SourceID {
		t.Errorf("fork content wrong: %+v", fork)
	}

	out, err := f.svc.Download(ctx, reader.ID, orig.Slug, "md")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	want := "# Forkable\n\nSource: [Blog](https://example.com)\n\nbody"
	if string(out.Body) != want || out.Filename != "forkable.md" {
		t.Errorf("download = %q (%s)", out.Body, out.Filename)
	}
	if _, err := f.svc.Download(ctx, reader.ID, orig.Slug, "pdf"); !errors.Is(err, content.ErrValidation) {
		t.Errorf("pdf download = %v, want validation error", err)
	}

	var downloads int64
	f.db.Model(&models.ActionModel{}).Where("verb = ?", "downloads").Count(&downloads)
	if downloads != 1 {
		t.Errorf("download actions = %d", downloads)
	}
}

func TestListingsAndSimilar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := createTestUser(t, f.db, "author")
	reader := createTestUser(t, f.db, "reader")
	page := pagination.Query{Page: 1, Size: 10}

	a, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Alpha", Body: "goroutines", Tags: "go, concurrency"})
	b, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Beta", Body: "channels", Tags: "go, concurrency"})
	c, _ := f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Gamma", Body: "modules", Tags: "go"})
	f.svc.Create(ctx, author.ID, CreateNoteDTO{Title: "Delta", Body: "borrowck", Tags: "rust", Anonymous: true})

	f.svc.ToggleLike(ctx, reader.ID, c.Slug)

	byLikes, pag, err := f.svc.ListPublic(ctx, OrderLikes, nil, page)
	if err != nil || pag.Total != 4 || byLikes[0].ID != c.ID {
		t.Fatalf("likes order = %v (%+v, %v)", byLikes, pag, err)
	}

	tagged, _, _ := f.svc.ListPublic(ctx, OrderCreated, []string{"concurrency"}, page)
	if len(tagged) != 2 {
		t.Errorf("tag filter = %d notes", len(tagged))
	}

	found, _, _ := f.svc.Search(ctx, "channel", page)
	if len(found) != 1 || found[0].ID != b.ID {
		t.Errorf("search = %+v", found)
	}

	profile, _, _ := f.svc.ListProfile(ctx, author.ID, page)
	if len(profile) != 3 {
		t.Errorf("profile should hide anonymous notes, got %d", len(profile))
	}

	full, _ := f.svc.GetBySlug(ctx, a.Slug, "")
	similar, err := f.svc.Similar(ctx, full, 5)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(similar) != 2 || similar[0].ID != b.ID || similar[1].ID != c.ID {
		t.Errorf("similar = %+v", similar)
	}
}

func TestMinRead(t *testing.T) {
	if got := MinRead(""); got != 0 {
		t.Errorf("MinRead(empty) = %d", got)
	}
	if got := MinRead(strings.Repeat("a", 930*3)); got != 3 {
		t.Errorf("MinRead = %d, want 3", got)
	}
}
