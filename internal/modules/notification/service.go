package notification

import (
	"context"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"gorm.io/gorm"
)

// Service reads and updates a user's notification inbox.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(ctx context.Context, userID string, q pagination.Query, unreadOnly bool) ([]models.NotificationModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("recipient_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("unread = ?", true)
	}
	tx = tx.Order("created_at DESC")

	var rows []models.NotificationModel
	pag, err := pagination.Paginate(tx, q, &rows)
	return rows, pag, err
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("recipient_id = ? AND unread = ?", userID, true).
		Count(&n).Error
	return n, err
}

// MarkRead reports false when the notification does not belong to the user.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	scope := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("id = ? AND recipient_id = ?", id, userID)
	var n int64
	if err := scope.Session(&gorm.Session{}).Count(&n).Error; err != nil || n == 0 {
		return false, err
	}
	return true, scope.Update("unread", false).Error
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("recipient_id = ? AND unread = ?", userID, true).
		Update("unread", false)
	return tx.RowsAffected, tx.Error
}
