package note

import (
	"context"
	"fmt"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/modules/processing/markdown"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stats holds the like/bookmark counters of a note for one viewer.
type Stats struct {
	Likes      int64
	Bookmarks  int64
	Liked      bool
	Bookmarked bool
}

func (s *Service) Stats(ctx context.Context, noteID, viewerID string) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Table("note_likes").Where("note_id = ?", noteID).Count(&st.Likes).Error; err != nil {
		return st, err
	}
	if err := db.Table("note_bookmarks").Where("note_id = ?", noteID).Count(&st.Bookmarks).Error; err != nil {
		return st, err
	}
	if viewerID == "" {
		return st, nil
	}
	var n int64
	if err := db.Table("note_likes").Where("note_id = ? AND user_id = ?", noteID, viewerID).Count(&n).Error; err != nil {
		return st, err
	}
	st.Liked = n > 0
	if err := db.Table("note_bookmarks").Where("note_id = ? AND user_id = ?", noteID, viewerID).Count(&n).Error; err != nil {
		return st, err
	}
	st.Bookmarked = n > 0
	return st, nil
}

// toggle flips the (note, user) row in a join table and reports whether it
// now exists.
func (s *Service) toggle(ctx context.Context, table, noteID, userID string) (bool, error) {
	var on bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Table(table).Where("note_id = ? AND user_id = ?", noteID, userID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return tx.Exec("DELETE FROM "+table+" WHERE note_id = ? AND user_id = ?", noteID, userID).Error
		}
		on = true
		return tx.Exec("INSERT INTO "+table+" (note_id, user_id) VALUES (?, ?)", noteID, userID).Error
	})
	return on, err
}

// ToggleLike likes or unlikes a note. A new like is logged and the author
// notified.
func (s *Service) ToggleLike(ctx context.Context, userID, noteSlug string) (bool, error) {
	note, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return false, err
	}
	liked, err := s.toggle(ctx, "note_likes", note.ID, userID)
	if err != nil || !liked {
		return liked, err
	}

	actor, target := actions.UserRef{ID: userID}, actions.NoteRef{ID: note.ID}
	if s.recorder == nil {
		return true, nil
	}
	recorded, err := s.recorder.Record(ctx, actor, actions.VerbLikes, target)
	if err != nil {
		s.logger.Warn("record like failed", zap.String("note", note.ID), zap.Error(err))
	}
	if recorded && s.dispatcher != nil {
		if _, err := s.dispatcher.Dispatch(ctx, actor, actions.VerbLikes, target); err != nil {
			s.logger.Warn("notify like failed", zap.String("note", note.ID), zap.Error(err))
		}
	}
	return true, nil
}

// ToggleBookmark bookmarks or un-bookmarks a note. Bookmarks are logged
// but nobody is notified.
func (s *Service) ToggleBookmark(ctx context.Context, userID, noteSlug string) (bool, error) {
	note, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return false, err
	}
	marked, err := s.toggle(ctx, "note_bookmarks", note.ID, userID)
	if err != nil || !marked {
		return marked, err
	}
	if s.recorder != nil {
		if _, err := s.recorder.Record(ctx, actions.UserRef{ID: userID}, actions.VerbBookmarks, actions.NoteRef{ID: note.ID}); err != nil {
			s.logger.Warn("record bookmark failed", zap.String("note", note.ID), zap.Error(err))
		}
	}
	return true, nil
}

// TogglePin pins or unpins a note on its author's pages.
func (s *Service) TogglePin(ctx context.Context, userID, noteSlug string) (bool, error) {
	note, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return false, err
	}
	if !isAuthor(note, userID) {
		return false, content.ErrForbidden
	}
	pin := !note.Pin
	if err := s.db.WithContext(ctx).Model(note).Update("pin", pin).Error; err != nil {
		return false, err
	}
	return pin, nil
}

// Download formats.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

// Export is a rendered note file.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Download exports a visible note as Markdown or HTML. Signed-in
// downloads are logged.
func (s *Service) Download(ctx context.Context, viewerID, noteSlug, format string) (*Export, error) {
	if format == "" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, content.Invalid("type", "must be md or html")
	}
	note, err := s.mustFind(ctx, noteSlug, viewerID)
	if err != nil {
		return nil, err
	}

	doc := markdown.ExportNote{
		Title:   note.Title,
		Slug:    note.Slug,
		Tags:    tagNames(note.Tags),
		Created: note.CreatedAt.Format("2006-01-02"),
		Body:    note.BodyRaw,
	}
	if note.Source != nil {
		doc.SourceTitle = note.Source.Title
		doc.SourceLink = note.Source.Link
	}

	out := &Export{Filename: fmt.Sprintf("%s.%s", note.Slug, format)}
	if format == FormatHTML {
		out.ContentType = "text/html; charset=utf-8"
		out.Body = []byte(markdown.ExportHTML(doc))
	} else {
		out.ContentType = "text/markdown; charset=utf-8"
		out.Body = []byte(markdown.ExportMarkdown(doc))
	}

	if viewerID != "" && s.recorder != nil {
		if _, err := s.recorder.Record(ctx, actions.UserRef{ID: viewerID}, actions.VerbDownloads, actions.NoteRef{ID: note.ID}); err != nil {
			s.logger.Warn("record download failed", zap.String("note", note.ID), zap.Error(err))
		}
	}
	return out, nil
}

// FindForViewer is GetBySlug returning ErrNotFound instead of nil.
func (s *Service) FindForViewer(ctx context.Context, noteSlug, viewerID string) (*models.NoteModel, error) {
	return s.mustFind(ctx, noteSlug, viewerID)
}
