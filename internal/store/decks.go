package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yenceelabs/speak-to-slides/internal/deck"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

type Deck struct {
	ID             string
	UserID         string
	Title          string
	Prompt         string
	HTML           string
	Slides         []deck.Slide
	SlideCount     int
	Theme          string
	IsPublic       bool
	IsPro          bool
	ConversationID string
	ViewCount      int
	CreatedAtMs    int64
	UpdatedAtMs    int64
}

type CreateDeckParams struct {
	UserID         string
	Title          string
	Prompt         string
	HTML           string
	Slides         []deck.Slide
	Theme          string
	IsPro          bool
	ConversationID string
}

func (s *Store) CreateDeck(ctx context.Context, p CreateDeckParams) (*Deck, error) {
	slidesJSON, err := json.Marshal(p.Slides)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to encode slides")
	}

	now := time.Now().UnixMilli()
	d := &Deck{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		Title:          p.Title,
		Prompt:         p.Prompt,
		HTML:           p.HTML,
		Slides:         p.Slides,
		SlideCount:     len(p.Slides),
		Theme:          p.Theme,
		IsPublic:       true,
		IsPro:          p.IsPro,
		ConversationID: p.ConversationID,
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decks (id, user_id, title, prompt, html, slides_json, slide_count, theme, is_public, is_pro, conversation_id, view_count, created_at_unix_ms, updated_at_unix_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, 0, ?, ?)`,
		d.ID, d.UserID, d.Title, d.Prompt, d.HTML, string(slidesJSON), d.SlideCount, d.Theme, boolToInt(d.IsPro), d.ConversationID, now, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to insert deck")
	}
	return d, nil
}

// GetDeck returns nil, nil when the deck does not exist.
func (s *Store) GetDeck(ctx context.Context, id string) (*Deck, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, prompt, html, slides_json, slide_count, theme, is_public, is_pro, conversation_id, view_count, created_at_unix_ms, updated_at_unix_ms
		 FROM decks WHERE id = ?`, id)

	var d Deck
	var slidesJSON string
	var isPublic, isPro int
	err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Prompt, &d.HTML, &slidesJSON, &d.SlideCount, &d.Theme, &isPublic, &isPro, &d.ConversationID, &d.ViewCount, &d.CreatedAtMs, &d.UpdatedAtMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to fetch deck")
	}
	if err := json.Unmarshal([]byte(slidesJSON), &d.Slides); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "corrupt slides_json")
	}
	d.IsPublic = isPublic != 0
	d.IsPro = isPro != 0
	return &d, nil
}

// UpdateDeckSlides persists a surgical edit: slides, re-rendered HTML,
// re-derived title and slide count land in one UPDATE so stored slides
// and document never diverge.
func (s *Store) UpdateDeckSlides(ctx context.Context, id string, slides []deck.Slide, title, html string) error {
	slidesJSON, err := json.Marshal(slides)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to encode slides")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE decks SET slides_json = ?, html = ?, title = ?, slide_count = ?, updated_at_unix_ms = ? WHERE id = ?`,
		string(slidesJSON), html, title, len(slides), time.Now().UnixMilli(), id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to update deck")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNotFound, "deck not found")
	}
	return nil
}

func (s *Store) IncrementViewCount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE decks SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to bump view count")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
