package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"github.com/noted-space/noted/internal/pkg/slug"
	"gorm.io/gorm"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 100

	// slugBase plus the collision suffix fits the 254-char column.
	slugBase = 245
)

// Input describes the source attached to a note.
type Input struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// Empty reports whether no source was given.
func (in Input) Empty() bool { return strings.TrimSpace(in.Title) == "" }

func (in Input) Validate() error {
	if in.Empty() {
		return nil
	}
	if in.Type != "" {
		if _, ok := models.SourceTypeNames[in.Type]; !ok {
			return content.Invalid("source.type", fmt.Sprintf("unknown source type %q", in.Type))
		}
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return content.Invalid("source.title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return content.Invalid("source.description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// GetOrCreate finds a source by (type, title) or creates it inside tx.
// It returns nil for an empty input.
func (s *Service) GetOrCreate(ctx context.Context, tx *gorm.DB, in Input) (*models.SourceModel, error) {
	if in.Empty() {
		return nil, nil
	}
	title := strings.TrimSpace(in.Title)
	typ := in.Type
	if typ == "" {
		typ = models.SourceOther
	}

	var src models.SourceModel
	err := tx.WithContext(ctx).Where("type = ? AND title = ?", typ, title).First(&src).Error
	if err == nil {
		return &src, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	gen := slug.NewGenerator(slug.TableChecker(tx, &models.SourceModel{}), slugBase)
	srcSlug, err := gen.Generate(ctx, title, true)
	if err != nil {
		return nil, err
	}
	src = models.SourceModel{
		Type:        typ,
		Title:       title,
		Link:        strings.TrimSpace(in.Link),
		Description: strings.TrimSpace(in.Description),
		Slug:        srcSlug,
	}
	if err := tx.WithContext(ctx).Create(&src).Error; err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return &src, nil
}

func (s *Service) GetBySlug(ctx context.Context, srcSlug string) (*models.SourceModel, error) {
	var src models.SourceModel
	if err := s.db.WithContext(ctx).Where("slug = ?", srcSlug).First(&src).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &src, nil
}

// Search matches sources by title.
func (s *Service) Search(ctx context.Context, q string, page pagination.Query) ([]models.SourceModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.SourceModel{}).Order("title ASC")
	if q = strings.TrimSpace(q); q != "" {
		tx = tx.Where("title LIKE ?", "%"+q+"%")
	}
	var rows []models.SourceModel
	pag, err := pagination.Paginate(tx, page, &rows)
	return rows, pag, err
}

// Notes lists the public notes taken from a source.
func (s *Service) Notes(ctx context.Context, sourceID string, page pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.NoteModel{}).
		Preload("Tags").
		Where("source_id = ? AND draft = ?", sourceID, false).
		Order("created_at DESC")
	var rows []models.NoteModel
	pag, err := pagination.Paginate(tx, page, &rows)
	return rows, pag, err
}

// GC deletes the source when no note refers to it any more.
func (s *Service) GC(ctx context.Context, tx *gorm.DB, sourceID string) (bool, error) {
	var n int64
	if err := tx.WithContext(ctx).Model(&models.NoteModel{}).Where("source_id = ?", sourceID).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	res := tx.WithContext(ctx).Where("id = ?", sourceID).Delete(&models.SourceModel{})
	return res.RowsAffected > 0, res.Error
}
