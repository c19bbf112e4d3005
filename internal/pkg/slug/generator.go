package slug

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmptySourceFieldError is returned when there is no text to build a slug from.
type EmptySourceFieldError struct {
	Field string
}

func (e *EmptySourceFieldError) Error() string {
	return fmt.Sprintf("cannot generate slug, because %q is empty", e.Field)
}

// Checker reports whether a slug is already taken.
type Checker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, slug string) (bool, error)

func (f CheckerFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

// TableChecker checks the slug column of the given model's table.
func TableChecker(db *gorm.DB, model interface{}) Checker {
	return CheckerFunc(func(ctx context.Context, slug string) (bool, error) {
		var count int64
		if err := db.WithContext(ctx).Model(model).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
}

// Generator builds unique slugs for one entity type.
type Generator struct {
	checker Checker
	field   string
	maxLen  int
	suffix  func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithField names the source field in EmptySourceFieldError.
func WithField(name string) Option {
	return func(g *Generator) { g.field = name }
}

// WithSuffix overrides the random collision suffix source.
func WithSuffix(fn func() string) Option {
	return func(g *Generator) { g.suffix = fn }
}

// NewGenerator returns a generator whose base slug is cut to maxLen runes.
func NewGenerator(checker Checker, maxLen int, opts ...Option) *Generator {
	g := &Generator{
		checker: checker,
		field:   "title",
		maxLen:  maxLen,
		suffix:  func() string { return uuid.New().String()[:8] },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate slugifies source, transliterating non-Latin text when asked.
// A taken base slug gets a random 8-char suffix and an empty one becomes the
// suffix alone; neither is checked again.
func (g *Generator) Generate(ctx context.Context, source string, transliterate bool) (string, error) {
	if source == "" {
		return "", &EmptySourceFieldError{Field: g.field}
	}
	if transliterate && !IsLatin(source) {
		source = Transliterate(source)
	}

	base := Slugify(source, g.maxLen)
	if base != "" {
		taken, err := g.checker.SlugExists(ctx, base)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", base, err)
		}
		if !taken {
			return base, nil
		}
	}
	if base == "" {
		return g.suffix(), nil
	}
	return truncate(base+"-"+g.suffix(), MaxLength), nil
}
