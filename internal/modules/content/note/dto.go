package note

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/content/source"
	"github.com/noted-space/noted/internal/modules/processing/markdown"
)

type CreateNoteDTO struct {
	Title     string       `json:"title"     binding:"required"`
	Body      string       `json:"body"      binding:"required"`
	Summary   string       `json:"summary"`
	Tags      string       `json:"tags"`
	Source    source.Input `json:"source"`
	Draft     bool         `json:"draft"`
	Anonymous bool         `json:"anonymous"`
}

// UpdateNoteDTO changes only the fields that are present. The slug never changes.
type UpdateNoteDTO struct {
	Title     *string       `json:"title"`
	Body      *string       `json:"body"`
	Summary   *string       `json:"summary"`
	Tags      *string       `json:"tags"`
	Source    *source.Input `json:"source"`
	Draft     *bool         `json:"draft"`
	Anonymous *bool         `json:"anonymous"`
}

// ListOrder is the sort key of public listings.
type ListOrder string

const (
	OrderCreated ListOrder = "created"
	OrderViews   ListOrder = "views"
	OrderLikes   ListOrder = "likes"
)

func ParseOrder(s string) ListOrder {
	switch ListOrder(s) {
	case OrderViews, OrderLikes:
		return ListOrder(s)
	}
	return OrderCreated
}

type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type forkResponse struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type noteResponse struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Slug       string              `json:"slug"`
	Author     *authorResponse     `json:"author"`
	Source     *models.SourceModel `json:"source"`
	Fork       *forkResponse       `json:"fork"`
	Tags       []models.TagModel   `json:"tags"`
	Summary    string              `json:"summary"`
	Preview    string              `json:"preview"`
	Image      string              `json:"image,omitempty"`
	Draft      bool                `json:"draft"`
	Anonymous  bool                `json:"anonymous"`
	Pin        bool                `json:"pin"`
	Lang       string              `json:"lang"`
	Views      int                 `json:"views"`
	MinRead    int                 `json:"min_read"`
	Created    time.Time           `json:"created"`
	Modified   time.Time           `json:"modified"`
	BodyRaw    string              `json:"body_raw,omitempty"`
	BodyHTML   string              `json:"body_html,omitempty"`
	Likes      int64               `json:"likes"`
	Bookmarks  int64               `json:"bookmarks"`
	Liked      bool                `json:"liked"`
	Bookmarked bool                `json:"bookmarked"`
}

// MinRead estimates reading time in minutes at 150 words per minute,
// counting 6.2 characters per word.
func MinRead(body string) int {
	return int(math.Round(float64(utf8.RuneCountInString(body)+1) / 6.2 / 150))
}

const previewLength = 250

func toResponse(n *models.NoteModel, viewerID string, full bool) noteResponse {
	resp := noteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Slug:      n.Slug,
		Source:    n.Source,
		Tags:      n.Tags,
		Summary:   n.Summary,
		Preview:   markdown.PreviewText(n.BodyHTML, previewLength),
		Image:     markdown.FirstImageURL(n.BodyHTML),
		Draft:     n.Draft,
		Anonymous: n.Anonymous,
		Pin:       n.Pin,
		Lang:      n.Lang,
		Views:     n.Views,
		MinRead:   MinRead(n.BodyRaw),
		Created:   n.CreatedAt,
		Modified:  n.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []models.TagModel{}
	}
	if n.Author != nil && (!n.Anonymous || isAuthor(n, viewerID)) {
		resp.Author = &authorResponse{ID: n.Author.ID, Username: n.Author.Username, FullName: n.Author.FullName}
	}
	if n.Fork != nil {
		resp.Fork = &forkResponse{Title: n.Fork.Title, Slug: n.Fork.Slug}
	}
	if full {
		resp.BodyRaw = n.BodyRaw
		resp.BodyHTML = n.BodyHTML
	}
	return resp
}
