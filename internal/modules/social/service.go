package social

import (
	"context"
	"errors"
	"time"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSelfFollow = content.Invalid("username", "you cannot follow yourself")

// PublicUser is the part of an account other users may see.
type PublicUser struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	Joined   time.Time `json:"joined"`
}

func toPublic(u *models.UserModel) PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, FullName: u.FullName, Joined: u.CreatedAt}
}

func toPublicList(users []models.UserModel) []PublicUser {
	out := make([]PublicUser, len(users))
	for i := range users {
		out[i] = toPublic(&users[i])
	}
	return out
}

// Profile is a user with the counters shown on their page.
type Profile struct {
	PublicUser
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Notes     int64 `json:"notes"`
	// IsFollowed reports whether the viewer follows this user.
	IsFollowed bool `json:"is_followed"`
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Profile loads the public profile of username as seen by viewerID.
func (s *Service) Profile(ctx context.Context, username, viewerID string) (*Profile, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, err
	}
	p := &Profile{PublicUser: toPublic(user)}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.FollowingModel{}).Where("followed_id = ?", user.ID).Count(&p.Followers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.FollowingModel{}).Where("follower_id = ?", user.ID).Count(&p.Following).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.NoteModel{}).
		Where("author_id = ? AND draft = ? AND anonymous = ?", user.ID, false, false).
		Count(&p.Notes).Error; err != nil {
		return nil, err
	}
	if viewerID != "" && viewerID != user.ID {
		if p.IsFollowed, err = s.IsFollowing(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Follow makes followerID follow followedID. It reports whether a new
// link was created; following twice is a no-op.
func (s *Service) Follow(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == followedID {
		return false, ErrSelfFollow
	}
	following, err := s.IsFollowing(ctx, followerID, followedID)
	if err != nil || following {
		return false, err
	}
	link := &models.FollowingModel{FollowerID: followerID, FollowedID: followedID}
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if content.IsDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	s.logger.Debug("user followed", zap.String("follower", followerID), zap.String("followed", followedID))
	return true, nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followedID string) error {
	return s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.FollowingModel{}).Error
}

func (s *Service) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.FollowingModel{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	return n > 0, err
}

// Followers lists the users following userID, newest first.
func (s *Service) Followers(ctx context.Context, userID string, q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Joins("JOIN followings ON followings.follower_id = users.id").
		Where("followings.followed_id = ?", userID).
		Order("followings.created_at DESC")
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}

// Following lists the users userID follows, newest first.
func (s *Service) Following(ctx context.Context, userID string, q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Joins("JOIN followings ON followings.followed_id = users.id").
		Where("followings.follower_id = ?", userID).
		Order("followings.created_at DESC")
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}
