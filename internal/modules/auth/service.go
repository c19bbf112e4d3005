package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	jwtpkg "github.com/noted-space/noted/internal/pkg/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Recorder logs the "new" action for fresh accounts.
type Recorder interface {
	Record(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) (bool, error)
}

type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	recorder Recorder
	tokenTTL time.Duration
	now      func() time.Time
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

// WithTokenTTL overrides jwt.DefaultTTL for issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, logger: zap.NewNop(), tokenTTL: jwtpkg.DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseUsername derives the handle for a full name: "@" plus the lower-cased
// name with spaces replaced by dots.
func BaseUsername(fullName string) string {
	return "@" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fullName), " ", "."))
}

// uniqueUsername appends 2, 3, ... to the base handle until it is free.
func uniqueUsername(tx *gorm.DB, fullName string) (string, error) {
	base := BaseUsername(fullName)
	candidate := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Model(&models.UserModel{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

func (s *Service) Signup(ctx context.Context, dto SignupDTO) (*models.UserModel, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	fullName := strings.TrimSpace(dto.FullName)
	if fullName == "" {
		return nil, content.Invalid("full_name", "this field is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *models.UserModel
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		username, err := uniqueUsername(tx, fullName)
		if err != nil {
			return err
		}
		user = &models.UserModel{
			Email:    email,
			Username: username,
			FullName: fullName,
			Password: string(hash),
			IsActive: true,
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if content.IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID), zap.String("username", user.Username))
	if s.recorder != nil {
		if _, err := s.recorder.Record(ctx, actions.UserRef{ID: user.ID}, actions.VerbNew, nil); err != nil {
			s.logger.Warn("record signup action failed", zap.Error(err))
		}
	}
	return user, nil
}

// Signin checks the credentials and returns a signed token.
func (s *Service) Signin(ctx context.Context, dto SigninDTO) (string, time.Time, *models.UserModel, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	var user models.UserModel
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)) != nil {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", time.Time{}, nil, ErrInactive
	}

	token, err := jwtpkg.Sign(user.ID, s.tokenTTL)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("sign token: %w", err)
	}
	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.logger.Warn("update last_login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	return token, now.Add(s.tokenTTL), &user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
