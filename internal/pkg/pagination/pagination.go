package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100

	// MaxPage keeps Offset inside an int32 for every allowed size.
	MaxPage = math.MaxInt32 / MaxSize
)

// Query is a 1-based page request.
type Query struct {
	Page int
	Size int
}

// FromContext reads ?page= and ?size= and clamps them to sane bounds.
// Garbage values fall back to the defaults.
func FromContext(c *gin.Context) Query {
	return Query{
		Page: min(max(queryInt(c, "page", DefaultPage), 1), MaxPage),
		Size: min(max(queryInt(c, "size", DefaultSize), 1), MaxSize),
	}
}

// Offset is the row offset of the current page.
func (q Query) Offset() int { return (q.Page - 1) * q.Size }

// Meta builds the response metadata for a result set of total rows.
func (q Query) Meta(total int64) response.Pagination {
	pages := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   pages,
		Size:        q.Size,
		HasNextPage: q.Page < pages,
	}
}

// Paginate counts db on a cloned session, so preloads and ordering only
// apply to the page fetch, then loads the requested page into dest.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}
	return q.Meta(total), nil
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
