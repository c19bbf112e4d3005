package note

import (
	"context"
	"fmt"
	"strings"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/modules/content/source"
	"github.com/noted-space/noted/internal/modules/content/tag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// draft is the fully prepared content of a note about to be stored.
type draft struct {
	title     string
	body      string
	html      string
	lang      string
	summary   string
	tags      []string
	source    source.Input
	sourceID  *string
	forkID    *string
	draft     bool
	anonymous bool
}

// Create publishes a new note: slug, language, rendering, storage, then the
// action log and notifications.
func (s *Service) Create(ctx context.Context, authorID string, dto CreateNoteDTO) (*models.NoteModel, error) {
	title := strings.TrimSpace(dto.Title)
	if err := validateNote(title, dto.Body, dto.Summary); err != nil {
		return nil, err
	}
	names := tag.ParseTagString(dto.Tags)
	if err := tag.Validate(names); err != nil {
		return nil, err
	}
	if err := dto.Source.Validate(); err != nil {
		return nil, err
	}

	return s.store(ctx, authorID, draft{
		title:     title,
		body:      dto.Body,
		summary:   strings.TrimSpace(dto.Summary),
		tags:      names,
		source:    dto.Source,
		draft:     dto.Draft,
		anonymous: dto.Anonymous,
	})
}

func (s *Service) store(ctx context.Context, authorID string, d draft) (*models.NoteModel, error) {
	var note *models.NoteModel
	for attempt := 0; ; attempt++ {
		noteSlug, err := s.slugs.Generate(ctx, d.title, true)
		if err != nil {
			return nil, err
		}
		if attempt == 0 {
			if d.lang == "" {
				d.lang = string(s.detector.Detect(d.body))
			}
			if d.html == "" {
				d.html = s.renderer.Render(ctx, d.body)
			}
		}

		note, err = s.insert(ctx, authorID, noteSlug, d)
		if err == nil {
			break
		}
		if content.IsDuplicateKey(err) && attempt < maxCreateRetries-1 {
			s.logger.Warn("note slug collided, retrying", zap.String("slug", noteSlug))
			continue
		}
		return nil, err
	}

	if !note.Draft {
		s.announce(ctx, note, note.Tags)
	}
	return note, nil
}

func (s *Service) insert(ctx context.Context, authorID, noteSlug string, d draft) (*models.NoteModel, error) {
	note := &models.NoteModel{
		Title:     d.title,
		Slug:      noteSlug,
		BodyRaw:   d.body,
		BodyHTML:  d.html,
		Summary:   d.summary,
		Draft:     d.draft,
		Anonymous: d.anonymous,
		Lang:      d.lang,
		ForkID:    d.forkID,
		SourceID:  d.sourceID,
	}
	if authorID != "" {
		note.AuthorID = &authorID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if note.SourceID == nil {
			src, err := s.sources.GetOrCreate(ctx, tx, d.source)
			if err != nil {
				return err
			}
			if src != nil {
				note.SourceID = &src.ID
				note.Source = src
			}
		}
		tags, err := s.tags.GetOrCreate(ctx, tx, d.tags)
		if err != nil {
			return err
		}
		note.Tags = tags
		if err := tx.Create(note).Error; err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(note.Tags) > 0 {
		s.tags.InvalidateTop(ctx)
	}
	return note, nil
}

// announce records "author creates note" and notifies the author's followers,
// then notifies the followers of each given tag. Failures are logged; the
// note is already stored.
func (s *Service) announce(ctx context.Context, note *models.NoteModel, newTags []models.TagModel) {
	target := actions.NoteRef{ID: note.ID}

	if note.AuthorID != nil && s.recorder != nil {
		author := actions.UserRef{ID: *note.AuthorID}
		recorded, err := s.recorder.Record(ctx, author, actions.VerbCreates, target)
		if err != nil {
			s.logger.Warn("record note creation failed", zap.String("note", note.ID), zap.Error(err))
		}
		// Anonymous notes are not pushed to the author's followers.
		if recorded && !note.Anonymous && s.dispatcher != nil {
			if _, err := s.dispatcher.Dispatch(ctx, author, actions.VerbCreates, target); err != nil {
				s.logger.Warn("notify author followers failed", zap.String("note", note.ID), zap.Error(err))
			}
		}
	}
	s.announceTags(ctx, note.ID, newTags)
}

func (s *Service) announceTags(ctx context.Context, noteID string, tags []models.TagModel) {
	if s.dispatcher == nil {
		return
	}
	target := actions.NoteRef{ID: noteID}
	for _, t := range tags {
		if _, err := s.dispatcher.Dispatch(ctx, actions.TagRef{ID: t.ID}, actions.VerbCreates, target); err != nil {
			s.logger.Warn("notify tag followers failed", zap.String("tag", t.Name), zap.Error(err))
		}
	}
}

// Update edits a note owned by userID. Changing the body re-renders it and
// re-detects its language; the slug stays as it is.
func (s *Service) Update(ctx context.Context, userID, noteSlug string, dto UpdateNoteDTO) (*models.NoteModel, error) {
	note, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return nil, err
	}
	if !isAuthor(note, userID) {
		return nil, content.ErrForbidden
	}

	wasDraft := note.Draft
	oldSourceID := note.SourceID
	oldTagIDs := make(map[string]struct{}, len(note.Tags))
	for _, t := range note.Tags {
		oldTagIDs[t.ID] = struct{}{}
	}

	updates := map[string]interface{}{}
	title, body, summary := note.Title, note.BodyRaw, note.Summary
	if dto.Title != nil {
		title = strings.TrimSpace(*dto.Title)
		updates["title"] = title
	}
	if dto.Body != nil && *dto.Body != note.BodyRaw {
		body = *dto.Body
		updates["body_raw"] = body
		updates["body_html"] = s.renderer.Render(ctx, body)
		updates["lang"] = string(s.detector.Detect(body))
	}
	if dto.Summary != nil {
		summary = strings.TrimSpace(*dto.Summary)
		updates["summary"] = summary
	}
	if dto.Draft != nil {
		updates["draft"] = *dto.Draft
	}
	if dto.Anonymous != nil {
		updates["anonymous"] = *dto.Anonymous
	}
	if err := validateNote(title, body, summary); err != nil {
		return nil, err
	}

	var names []string
	if dto.Tags != nil {
		names = tag.ParseTagString(*dto.Tags)
		if err := tag.Validate(names); err != nil {
			return nil, err
		}
	}
	if dto.Source != nil {
		if err := dto.Source.Validate(); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dto.Source != nil {
			src, err := s.sources.GetOrCreate(ctx, tx, *dto.Source)
			if err != nil {
				return err
			}
			if src != nil {
				updates["source_id"] = src.ID
			} else {
				updates["source_id"] = nil
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(note).Updates(updates).Error; err != nil {
				return fmt.Errorf("update note: %w", err)
			}
		}
		if dto.Tags != nil {
			tags, err := s.tags.GetOrCreate(ctx, tx, names)
			if err != nil {
				return err
			}
			if err := tx.Model(note).Association("Tags").Replace(tags); err != nil {
				return fmt.Errorf("replace tags: %w", err)
			}
			if _, err := s.tags.GC(ctx, tx); err != nil {
				return err
			}
		}
		if oldSourceID != nil && dto.Source != nil {
			if _, err := s.sources.GC(ctx, tx, *oldSourceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dto.Tags != nil {
		s.tags.InvalidateTop(ctx)
	}

	updated, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case wasDraft && !updated.Draft:
		s.announce(ctx, updated, updated.Tags)
	case !updated.Draft && dto.Tags != nil:
		var added []models.TagModel
		for _, t := range updated.Tags {
			if _, ok := oldTagIDs[t.ID]; !ok {
				added = append(added, t)
			}
		}
		s.announceTags(ctx, updated.ID, added)
	}
	return updated, nil
}

// Delete removes a note owned by userID, then drops its Source and Tags
// if no other note uses them.
func (s *Service) Delete(ctx context.Context, userID, noteSlug string) error {
	note, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return err
	}
	if !isAuthor(note, userID) {
		return content.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"note_tags", "note_likes", "note_bookmarks"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE note_id = ?", note.ID).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.NoteModel{}).Where("fork_id = ?", note.ID).
			Update("fork_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.NoteModel{}, "id = ?", note.ID).Error; err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		if note.SourceID != nil {
			if _, err := s.sources.GC(ctx, tx, *note.SourceID); err != nil {
				return err
			}
		}
		_, err := s.tags.GC(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}
	if len(note.Tags) > 0 {
		s.tags.InvalidateTop(ctx)
	}
	return nil
}

// Fork copies a visible note into a new note owned by userID.
func (s *Service) Fork(ctx context.Context, userID, noteSlug string) (*models.NoteModel, error) {
	orig, err := s.mustFind(ctx, noteSlug, userID)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, userID, draft{
		title:    orig.Title,
		body:     orig.BodyRaw,
		html:     orig.BodyHTML,
		lang:     orig.Lang,
		summary:  orig.Summary,
		tags:     tagNames(orig.Tags),
		sourceID: orig.SourceID,
		forkID:   &orig.ID,
	})
}
