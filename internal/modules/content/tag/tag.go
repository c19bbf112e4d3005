package tag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/pkg/pagination"
	redisc "github.com/noted-space/noted/internal/pkg/redis"
	"github.com/noted-space/noted/internal/pkg/response"
	"github.com/noted-space/noted/internal/pkg/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxPerNote    = 3
	MaxNameLength = 24
	MaxTop        = 50

	// slugBase leaves room for the collision suffix inside the 128-char column.
	slugBase = 119

	// One hash, one field per n, so invalidation is a single DEL.
	topCacheKey = "noted:tags:top"
	topCacheTTL = 72 * time.Hour
)

// ParseTagString splits "Go, Web Dev" into ["go", "web-dev"].
// Blank items and repeats are dropped.
func ParseTagString(s string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		name = strings.Join(strings.Fields(name), "-")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Validate enforces the per-note tag limits.
func Validate(names []string) error {
	if len(names) > MaxPerNote {
		return content.Invalid("tags", fmt.Sprintf("at most %d tags are allowed", MaxPerNote))
	}
	for _, name := range names {
		if utf8.RuneCountInString(name) > MaxNameLength {
			return content.Invalid("tags", fmt.Sprintf("tag %q is longer than %d characters", name, MaxNameLength))
		}
	}
	return nil
}

// TagCount is a tag with the number of notes carrying it.
type TagCount struct {
	models.TagModel
	NoteCount int64 `json:"note_count" gorm:"column:note_count"`
}

type Service struct {
	db     *gorm.DB
	cache  *redisc.Client
	logger *zap.Logger
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache enables the redis cache for Top.
func WithCache(c *redisc.Client) Option {
	return func(s *Service) { s.cache = c }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the tags with the given names, creating missing ones
// inside tx. The result keeps the order of names. Callers drop the Top cache
// with InvalidateTop once tx commits.
func (s *Service) GetOrCreate(ctx context.Context, tx *gorm.DB, names []string) ([]models.TagModel, error) {
	gen := slug.NewGenerator(slug.TableChecker(tx, &models.TagModel{}), slugBase, slug.WithField("name"))
	tags := make([]models.TagModel, 0, len(names))
	for _, name := range names {
		var tag models.TagModel
		err := tx.WithContext(ctx).Where("name = ?", name).First(&tag).Error
		if err == nil {
			tags = append(tags, tag)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		tagSlug, err := gen.Generate(ctx, name, true)
		if err != nil {
			return nil, err
		}
		tag = models.TagModel{Name: name, Slug: tagSlug}
		if err := tx.WithContext(ctx).Create(&tag).Error; err != nil {
			return nil, fmt.Errorf("create tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *Service) GetBySlug(ctx context.Context, tagSlug string) (*models.TagModel, error) {
	var tag models.TagModel
	if err := s.db.WithContext(ctx).Where("slug = ?", tagSlug).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

func (s *Service) List(ctx context.Context, q pagination.Query) ([]models.TagModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.TagModel{}).Order("name ASC")
	var tags []models.TagModel
	pag, err := pagination.Paginate(tx, q, &tags)
	return tags, pag, err
}

// Top returns the n most used tags, n capped at MaxTop. Results are cached
// when redis is enabled.
func (s *Service) Top(ctx context.Context, n int) ([]TagCount, error) {
	if n <= 0 {
		n = 10
	}
	n = min(n, MaxTop)
	field := strconv.Itoa(n)
	if s.cache != nil {
		var cached []TagCount
		hit, err := s.cache.HGetJSON(ctx, topCacheKey, field, &cached)
		if err != nil {
			s.logger.Warn("read top tags cache failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	var rows []TagCount
	err := s.db.WithContext(ctx).Model(&models.TagModel{}).
		Select("tags.*, COUNT(note_tags.note_id) AS note_count").
		Joins("JOIN note_tags ON note_tags.tag_id = tags.id").
		Group("tags.id").
		Order("note_count DESC, tags.name ASC").
		Limit(n).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.HSetJSON(ctx, topCacheKey, field, rows, topCacheTTL); err != nil {
			s.logger.Warn("write top tags cache failed", zap.Error(err))
		}
	}
	return rows, nil
}

// GC deletes tags that no note carries any more, together with their follows.
func (s *Service) GC(ctx context.Context, tx *gorm.DB) (int64, error) {
	used := tx.Session(&gorm.Session{NewDB: true}).Table("note_tags").Select("tag_id")

	var orphans []string
	if err := tx.WithContext(ctx).Model(&models.TagModel{}).
		Where("id NOT IN (?)", used).
		Pluck("id", &orphans).Error; err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if err := tx.WithContext(ctx).Where("tag_id IN ?", orphans).Delete(&models.TagFollowModel{}).Error; err != nil {
		return 0, err
	}
	res := tx.WithContext(ctx).Where("id IN ?", orphans).Delete(&models.TagModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	s.logger.Debug("orphan tags removed", zap.Int64("count", res.RowsAffected))
	return res.RowsAffected, nil
}

// Follow makes userID follow the tag. It reports false when already following.
func (s *Service) Follow(ctx context.Context, userID, tagID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where(models.TagFollowModel{UserID: userID, TagID: tagID}).
		FirstOrCreate(&models.TagFollowModel{UserID: userID, TagID: tagID})
	return res.RowsAffected > 0, res.Error
}

func (s *Service) Unfollow(ctx context.Context, userID, tagID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND tag_id = ?", userID, tagID).
		Delete(&models.TagFollowModel{}).Error
}

func (s *Service) IsFollowing(ctx context.Context, userID, tagID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TagFollowModel{}).
		Where("user_id = ? AND tag_id = ?", userID, tagID).
		Count(&n).Error
	return n > 0, err
}

// InvalidateTop drops every cached Top result. Call it after the
// transaction that changed tags or note_tags has committed.
func (s *Service) InvalidateTop(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, topCacheKey); err != nil {
		s.logger.Warn("invalidate top tags cache failed", zap.Error(err))
	}
}
