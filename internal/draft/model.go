package draft

// Platform identifies one raster target for an exported post.
type Platform string

const (
	PlatformFeed  Platform = "feed"
	PlatformStory Platform = "story"
	PlatformReel  Platform = "reel"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformFeed, PlatformStory, PlatformReel:
		return true
	}
	return false
}

type BackgroundType string

const (
	BackgroundColor BackgroundType = "color"
	BackgroundImage BackgroundType = "image"
)

// Slide is one carousel page of a draft. DragID is a session-local
// identity token for list-diffing UIs; it is assigned lazily on the
// first reorder or history replay and stripped before persistence.
type Slide struct {
	Headline        string         `json:"headline"`
	Subheadline     string         `json:"subheadline,omitempty"`
	BodyText        string         `json:"bodyText,omitempty"`
	CTAText         string         `json:"ctaText,omitempty"`
	BackgroundType  BackgroundType `json:"backgroundType"`
	BackgroundValue string         `json:"backgroundValue"`
	DragID          string         `json:"dragId,omitempty"`
}

// Arc links a draft to a serialized-story episode and carries the
// continuity text rendered on the first and last slide.
type Arc struct {
	ID            string `json:"id"`
	EpisodeNumber int    `json:"episodeNumber"`
	Recap         string `json:"recap,omitempty"`
	Cliffhanger   string `json:"cliffhanger,omitempty"`
	NextHint      string `json:"nextHint,omitempty"`
}

// Draft is the post under construction. Exactly one lives per editing
// session, owned by its Store.
type Draft struct {
	Slides            []Slide           `json:"slides"`
	CaptionA          string            `json:"captionA"`
	CaptionB          string            `json:"captionB"`
	HashtagsA         string            `json:"hashtagsA"`
	HashtagsB         string            `json:"hashtagsB"`
	CTAText           string            `json:"ctaText"`
	Category          string            `json:"category"`
	Country           string            `json:"country,omitempty"`
	Tone              string            `json:"tone,omitempty"`
	TemplateID        string            `json:"templateId,omitempty"`
	Platform          Platform          `json:"platform"`
	SelectedPlatforms map[Platform]bool `json:"selectedPlatforms"`
	Arc               *Arc              `json:"arc,omitempty"`
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	out := d
	out.Slides = append([]Slide(nil), d.Slides...)
	if d.SelectedPlatforms != nil {
		out.SelectedPlatforms = make(map[Platform]bool, len(d.SelectedPlatforms))
		for k, v := range d.SelectedPlatforms {
			out.SelectedPlatforms[k] = v
		}
	}
	if d.Arc != nil {
		arc := *d.Arc
		out.Arc = &arc
	}
	return out
}

// Editable is the subset of a draft captured by history snapshots and
// compared by the generation arbiter.
type Editable struct {
	Slides    []Slide `json:"slides"`
	CaptionA  string  `json:"captionA"`
	CaptionB  string  `json:"captionB"`
	HashtagsA string  `json:"hashtagsA"`
	HashtagsB string  `json:"hashtagsB"`
	CTAText   string  `json:"ctaText"`
}

// Editable extracts a deep copy of the editable subset of d.
func (d Draft) Editable() Editable {
	return Editable{
		Slides:    append([]Slide(nil), d.Slides...),
		CaptionA:  d.CaptionA,
		CaptionB:  d.CaptionB,
		HashtagsA: d.HashtagsA,
		HashtagsB: d.HashtagsB,
		CTAText:   d.CTAText,
	}
}

// StripDragIDs returns a copy of slides with identity tokens removed,
// for persistence payloads and content comparisons.
func StripDragIDs(slides []Slide) []Slide {
	out := append([]Slide(nil), slides...)
	for i := range out {
		out[i].DragID = ""
	}
	return out
}
