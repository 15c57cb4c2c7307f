package draft

import (
	"fmt"

	"github.com/felitsch/postforge/pkg/errors"
)

// Field is the closed set of per-draft and per-slide values that can be
// regenerated individually. Each carries its own getter/setter pair so
// the regenerable surface is exhaustively checkable.
type Field string

const (
	FieldHeadline    Field = "headline"
	FieldSubheadline Field = "subheadline"
	FieldBodyText    Field = "bodyText"
	FieldSlideCTA    Field = "slideCta"
	FieldCaptionA    Field = "captionA"
	FieldCaptionB    Field = "captionB"
	FieldHashtagsA   Field = "hashtagsA"
	FieldHashtagsB   Field = "hashtagsB"
	FieldCTAText     Field = "ctaText"
)

// PerSlide reports whether the field lives on a slide rather than on
// the draft itself.
func (f Field) PerSlide() bool {
	switch f {
	case FieldHeadline, FieldSubheadline, FieldBodyText, FieldSlideCTA:
		return true
	}
	return false
}

func (f Field) Valid() bool {
	switch f {
	case FieldHeadline, FieldSubheadline, FieldBodyText, FieldSlideCTA,
		FieldCaptionA, FieldCaptionB, FieldHashtagsA, FieldHashtagsB, FieldCTAText:
		return true
	}
	return false
}

// Get reads the field value from d. slideIndex is ignored for
// draft-level fields.
func (f Field) Get(d *Draft, slideIndex int) (string, error) {
	if f.PerSlide() {
		if slideIndex < 0 || slideIndex >= len(d.Slides) {
			return "", errors.New(errors.ErrCodeValidation, fmt.Sprintf("slide index %d out of range", slideIndex))
		}
		s := &d.Slides[slideIndex]
		switch f {
		case FieldHeadline:
			return s.Headline, nil
		case FieldSubheadline:
			return s.Subheadline, nil
		case FieldBodyText:
			return s.BodyText, nil
		case FieldSlideCTA:
			return s.CTAText, nil
		}
	}
	switch f {
	case FieldCaptionA:
		return d.CaptionA, nil
	case FieldCaptionB:
		return d.CaptionB, nil
	case FieldHashtagsA:
		return d.HashtagsA, nil
	case FieldHashtagsB:
		return d.HashtagsB, nil
	case FieldCTAText:
		return d.CTAText, nil
	}
	return "", errors.New(errors.ErrCodeValidation, fmt.Sprintf("unknown field %q", string(f)))
}

func (f Field) set(d *Draft, slideIndex int, value string) error {
	if f.PerSlide() {
		if slideIndex < 0 || slideIndex >= len(d.Slides) {
			return errors.New(errors.ErrCodeValidation, fmt.Sprintf("slide index %d out of range", slideIndex))
		}
		s := &d.Slides[slideIndex]
		switch f {
		case FieldHeadline:
			s.Headline = value
		case FieldSubheadline:
			s.Subheadline = value
		case FieldBodyText:
			s.BodyText = value
		case FieldSlideCTA:
			s.CTAText = value
		}
		return nil
	}
	switch f {
	case FieldCaptionA:
		d.CaptionA = value
	case FieldCaptionB:
		d.CaptionB = value
	case FieldHashtagsA:
		d.HashtagsA = value
	case FieldHashtagsB:
		d.HashtagsB = value
	case FieldCTAText:
		d.CTAText = value
	default:
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("unknown field %q", string(f)))
	}
	return nil
}
