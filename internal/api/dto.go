package api

import (
	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/export"
	"github.com/felitsch/postforge/internal/service/genai"
)

type CreateSessionRequest struct {
	// Draft rehydrates the session from a persisted in-progress
	// workflow; omitted, the session starts empty.
	Draft *draft.Draft `json:"draft,omitempty"`
}

type SessionResponse struct {
	SessionID string      `json:"session_id"`
	Draft     draft.Draft `json:"draft"`
	CanUndo   bool        `json:"can_undo"`
	CanRedo   bool        `json:"can_redo"`
	Dirty     bool        `json:"dirty"`
}

// UpdateDraftRequest applies field-level edits; nil pointers leave the
// field untouched.
type UpdateDraftRequest struct {
	CaptionA          *string          `json:"captionA,omitempty"`
	CaptionB          *string          `json:"captionB,omitempty"`
	HashtagsA         *string          `json:"hashtagsA,omitempty"`
	HashtagsB         *string          `json:"hashtagsB,omitempty"`
	CTAText           *string          `json:"ctaText,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Platform          *draft.Platform  `json:"platform,omitempty"`
	SelectedPlatforms []draft.Platform `json:"selectedPlatforms,omitempty"`
	Arc               *draft.Arc       `json:"arc,omitempty"`
	Slides            []SlideEdit      `json:"slides,omitempty"`
}

type SlideEdit struct {
	Index int         `json:"index"`
	Field draft.Field `json:"field"`
	Value string      `json:"value"`
}

type AddSlideRequest struct {
	Slide draft.Slide `json:"slide"`
}

type MoveSlideRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type GenerateRequest struct {
	Kind       string `json:"kind" binding:"required"`
	Field      string `json:"field,omitempty"`
	SlideIndex int    `json:"slideIndex,omitempty"`

	Category   string `json:"category,omitempty"`
	Topic      string `json:"topic,omitempty"`
	KeyPoints  string `json:"keyPoints,omitempty"`
	Country    string `json:"country,omitempty"`
	Platform   string `json:"platform,omitempty"`
	SlideCount int    `json:"slideCount,omitempty"`
	Tone       string `json:"tone,omitempty"`
	StudentID  string `json:"studentId,omitempty"`
}

type PendingResponse struct {
	Pending    bool              `json:"pending"`
	Kind       string            `json:"kind,omitempty"`
	Field      string            `json:"field,omitempty"`
	SlideIndex int               `json:"slideIndex,omitempty"`
	Value      string            `json:"value,omitempty"`
	Full       *genai.PostResult `json:"full,omitempty"`
}

type ExportRequest struct {
	Platforms    []draft.Platform `json:"platforms" binding:"required"`
	SlideCount   int              `json:"slideCount" binding:"required"`
	Quality      string           `json:"quality"`
	AdaptContent bool             `json:"adaptContent"`
}

func (r ExportRequest) job() export.Job {
	return export.Job{
		Platforms:    r.Platforms,
		SlideCount:   r.SlideCount,
		Quality:      qualityFromString(r.Quality),
		AdaptContent: r.AdaptContent,
	}
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
