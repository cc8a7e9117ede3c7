package deck

import (
	"encoding/json"
	"strings"

	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

// Slide kinds. The type tag is immutable once a slide exists; edits only
// touch content fields and UserImageURL.
const (
	TypeTitle   = "title"
	TypeBullets = "bullets"
	TypeContent = "content"
	TypeQuote   = "quote"
	TypeStats   = "stats"
	TypeImage   = "image"
)

type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Slide struct {
	Type        string   `json:"type"`
	Heading     string   `json:"heading,omitempty"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Points      []string `json:"points,omitempty"`
	Body        string   `json:"body,omitempty"`
	Text        string   `json:"text,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
	Stats       []Stat   `json:"stats,omitempty"`
	Caption     string   `json:"caption,omitempty"`
	Placeholder bool     `json:"placeholder,omitempty"`
	// UserImageURL is a late-bound override set by the owner's image
	// upload. It supersedes any generated placeholder on any slide kind.
	UserImageURL string `json:"user_image_url,omitempty"`
}

type Deck struct {
	Title  string  `json:"title"`
	Theme  string  `json:"theme,omitempty"`
	Slides []Slide `json:"slides"`
}

// Outline is the lightweight pre-commitment structure negotiated in chat
// before full content generation.
type Outline struct {
	Title  string         `json:"title"`
	Slides []OutlineSlide `json:"slides"`
}

type OutlineSlide struct {
	Index   int    `json:"index"`
	Heading string `json:"heading"`
	Type    string `json:"type"`
	Notes   string `json:"notes,omitempty"`
}

func KnownType(t string) bool {
	switch t {
	case TypeTitle, TypeBullets, TypeContent, TypeQuote, TypeStats, TypeImage:
		return true
	}
	return false
}

// StripFences removes a markdown code fence the model sometimes wraps
// its JSON output in.
func StripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// ParseDeck decodes model output into a Deck. Model output is untrusted:
// fenced blocks are stripped and the shape is validated before use.
func ParseDeck(raw string) (*Deck, error) {
	clean := StripFences(raw)

	var d Deck
	if err := json.Unmarshal([]byte(clean), &d); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenFormat, "model returned non-JSON deck")
	}
	if d.Slides == nil {
		return nil, errors.New(errors.ErrCodeGenFormat, "deck JSON missing slides array")
	}
	return &d, nil
}

// ParseSlides decodes the replacement slide list returned by an edit.
// The list must be non-empty and every element must carry a recognized
// type tag; beyond that the array is trusted as the new source of truth.
func ParseSlides(raw string) ([]Slide, error) {
	clean := StripFences(raw)

	var slides []Slide
	if err := json.Unmarshal([]byte(clean), &slides); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenFormat, "model returned non-JSON slide list")
	}
	if len(slides) == 0 {
		return nil, errors.New(errors.ErrCodeGenFormat, "model returned empty slide list")
	}
	for i, s := range slides {
		if !KnownType(s.Type) {
			return nil, errors.Newf(errors.ErrCodeGenFormat, "slide %d has unrecognized type %q", i, s.Type)
		}
	}
	return slides, nil
}

func ParseOutline(raw string) (*Outline, error) {
	clean := StripFences(raw)

	var o Outline
	if err := json.Unmarshal([]byte(clean), &o); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenFormat, "model returned non-JSON outline")
	}
	if len(o.Slides) == 0 {
		return nil, errors.New(errors.ErrCodeGenFormat, "outline JSON missing slides")
	}
	return &o, nil
}

// DeriveTitle returns the heading of the first title-kind slide. Called
// on every edit so the stored deck title tracks slide content.
func DeriveTitle(slides []Slide) string {
	for _, s := range slides {
		if s.Type == TypeTitle && s.Heading != "" {
			return s.Heading
		}
	}
	return "Presentation"
}
