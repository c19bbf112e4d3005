package notification

import (
	"context"
	"errors"

	"github.com/noted-space/noted/internal/models"
	"gorm.io/gorm"
)

// Directory answers the lookups needed to pick recipients.
type Directory interface {
	// NoteAuthor returns "" when the note is missing or has no author.
	NoteAuthor(ctx context.Context, noteID string) (string, error)
	UserFollowers(ctx context.Context, userID string) ([]string, error)
	TagFollowers(ctx context.Context, tagID string) ([]string, error)
}

// GormDirectory reads recipients from the database.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory { return &GormDirectory{db: db} }

func (d *GormDirectory) NoteAuthor(ctx context.Context, noteID string) (string, error) {
	var note models.NoteModel
	err := d.db.WithContext(ctx).Select("id", "author_id").Where("id = ?", noteID).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if note.AuthorID == nil {
		return "", nil
	}
	return *note.AuthorID, nil
}

func (d *GormDirectory) UserFollowers(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.FollowingModel{}).
		Where("followed_id = ?", userID).
		Order("created_at DESC").
		Pluck("follower_id", &ids).Error
	return ids, err
}

func (d *GormDirectory) TagFollowers(ctx context.Context, tagID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.TagFollowModel{}).
		Where("tag_id = ?", tagID).
		Pluck("user_id", &ids).Error
	return ids, err
}
