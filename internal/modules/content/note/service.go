package note

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/modules/content/source"
	"github.com/noted-space/noted/internal/modules/content/tag"
	"github.com/noted-space/noted/internal/modules/processing/langdetect"
	"github.com/noted-space/noted/internal/pkg/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxTitleLength   = 100
	MaxSummaryLength = 250

	// slugBase plus the collision suffix fits the 255-char column.
	slugBase         = 245
	maxCreateRetries = 3
)

// Renderer turns Markdown into HTML and never fails.
type Renderer interface {
	Render(ctx context.Context, markdown string) string
}

type Detector interface {
	Detect(text string) langdetect.Lang
}

type Recorder interface {
	Record(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) (bool, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) ([]string, error)
}

// Service runs the note publishing pipeline and the note queries.
type Service struct {
	db         *gorm.DB
	renderer   Renderer
	detector   Detector
	recorder   Recorder
	dispatcher Dispatcher
	tags       *tag.Service
	sources    *source.Service
	slugs      *slug.Generator
	logger     *zap.Logger
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithTags(t *tag.Service) Option {
	return func(s *Service) {
		if t != nil {
			s.tags = t
		}
	}
}

func WithSources(src *source.Service) Option {
	return func(s *Service) {
		if src != nil {
			s.sources = src
		}
	}
}

func WithSlugOptions(opts ...slug.Option) Option {
	return func(s *Service) {
		s.slugs = slug.NewGenerator(slug.TableChecker(s.db, &models.NoteModel{}), slugBase, opts...)
	}
}

func NewService(db *gorm.DB, renderer Renderer, detector Detector, opts ...Option) *Service {
	s := &Service{
		db:       db,
		renderer: renderer,
		detector: detector,
		tags:     tag.NewService(db),
		sources:  source.NewService(db),
		slugs:    slug.NewGenerator(slug.TableChecker(db, &models.NoteModel{}), slugBase),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateNote(title, body, summary string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return content.Invalid("title", "is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return content.Invalid("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	case strings.TrimSpace(body) == "":
		return content.Invalid("body", "is required")
	case utf8.RuneCountInString(summary) > MaxSummaryLength:
		return content.Invalid("summary", fmt.Sprintf("must be at most %d characters", MaxSummaryLength))
	}
	return nil
}

// find loads a note by slug with its relations. Drafts are only visible to
// their author; (nil, nil) means not found for this viewer.
func (s *Service) find(ctx context.Context, noteSlug, viewerID string) (*models.NoteModel, error) {
	var note models.NoteModel
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Source").
		Preload("Tags").
		Preload("Fork").
		Where("slug = ?", noteSlug).
		First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if note.Draft && !isAuthor(&note, viewerID) {
		return nil, nil
	}
	return &note, nil
}

// mustFind is find with a not-found error.
func (s *Service) mustFind(ctx context.Context, noteSlug, viewerID string) (*models.NoteModel, error) {
	note, err := s.find(ctx, noteSlug, viewerID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, content.ErrNotFound
	}
	return note, nil
}

func (s *Service) GetBySlug(ctx context.Context, noteSlug, viewerID string) (*models.NoteModel, error) {
	return s.find(ctx, noteSlug, viewerID)
}

// View bumps the view counter.
func (s *Service) View(ctx context.Context, noteID string) error {
	return s.db.WithContext(ctx).Model(&models.NoteModel{}).
		Where("id = ?", noteID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func isAuthor(note *models.NoteModel, userID string) bool {
	return userID != "" && note.AuthorID != nil && *note.AuthorID == userID
}

func tagNames(tags []models.TagModel) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}
