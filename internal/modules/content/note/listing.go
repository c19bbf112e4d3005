package note

import (
	"context"
	"strings"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"gorm.io/gorm"
)

const likesOrder = "(SELECT COUNT(*) FROM note_likes WHERE note_likes.note_id = notes.id) DESC"

func (s *Service) listQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.NoteModel{}).
		Preload("Author").
		Preload("Source").
		Preload("Tags")
}

func (s *Service) page(tx *gorm.DB, q pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	var notes []models.NoteModel
	pag, err := pagination.Paginate(tx, q, &notes)
	return notes, pag, err
}

func withTagSlugs(tx *gorm.DB, slugs []string) *gorm.DB {
	if len(slugs) == 0 {
		return tx
	}
	return tx.Where("notes.id IN (SELECT note_tags.note_id FROM note_tags JOIN tags ON tags.id = note_tags.tag_id WHERE tags.slug IN ?)", slugs)
}

// ListPublic lists published notes, optionally limited to some tags.
func (s *Service) ListPublic(ctx context.Context, order ListOrder, tagSlugs []string, q pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	tx := withTagSlugs(s.listQuery(ctx).Where("notes.draft = ?", false), tagSlugs)
	switch order {
	case OrderViews:
		tx = tx.Order("notes.views DESC")
	case OrderLikes:
		tx = tx.Order(likesOrder)
	}
	return s.page(tx.Order("notes.created_at DESC"), q)
}

// ListPersonal lists every note of the author, drafts included.
func (s *Service) ListPersonal(ctx context.Context, authorID string, tagSlugs []string, q pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	tx := withTagSlugs(s.listQuery(ctx).Where("notes.author_id = ?", authorID), tagSlugs).
		Order("notes.pin DESC").
		Order("notes.created_at DESC")
	return s.page(tx, q)
}

// ListProfile lists what others see on a user's profile: published,
// non-anonymous notes.
func (s *Service) ListProfile(ctx context.Context, authorID string, q pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	tx := s.listQuery(ctx).
		Where("notes.author_id = ? AND notes.draft = ? AND notes.anonymous = ?", authorID, false, false).
		Order("notes.pin DESC").
		Order("notes.created_at DESC")
	return s.page(tx, q)
}

// ListBookmarks lists the notes a user bookmarked.
func (s *Service) ListBookmarks(ctx context.Context, userID string, q pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	tx := s.listQuery(ctx).
		Where("notes.id IN (SELECT note_id FROM note_bookmarks WHERE user_id = ?)", userID).
		Where("notes.draft = ? OR notes.author_id = ?", false, userID).
		Order("notes.created_at DESC")
	return s.page(tx, q)
}

// Search matches published notes by title, summary or body.
func (s *Service) Search(ctx context.Context, query string, q pagination.Query) ([]models.NoteModel, response.Pagination, error) {
	query = strings.TrimSpace(query)
	tx := s.listQuery(ctx).Where("notes.draft = ?", false)
	if query != "" {
		like := "%" + query + "%"
		tx = tx.Where("notes.title LIKE ? OR notes.summary LIKE ? OR notes.body_raw LIKE ?", like, like, like)
	}
	return s.page(tx.Order("notes.created_at DESC"), q)
}

// MaxSimilar caps Similar the same way the feed is capped.
const MaxSimilar = 200

func similarLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	return min(limit, MaxSimilar)
}

// Similar returns published notes sharing tags with the given one,
// most shared tags first.
func (s *Service) Similar(ctx context.Context, note *models.NoteModel, limit int) ([]models.NoteModel, error) {
	if len(note.Tags) == 0 {
		return []models.NoteModel{}, nil
	}
	limit = similarLimit(limit)
	ids := make([]string, len(note.Tags))
	for i, t := range note.Tags {
		ids[i] = t.ID
	}

	var notes []models.NoteModel
	err := s.db.WithContext(ctx).Model(&models.NoteModel{}).
		Preload("Tags").
		Select("notes.*").
		Joins("JOIN note_tags ON note_tags.note_id = notes.id").
		Where("note_tags.tag_id IN ? AND notes.id <> ? AND notes.draft = ?", ids, note.ID, false).
		Group("notes.id").
		Order("COUNT(note_tags.tag_id) DESC").
		Order("notes.created_at DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}
