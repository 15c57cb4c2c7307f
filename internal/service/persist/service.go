package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/infra/httpclient"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/pkg/errors"
)

// PostRecord is the backend's create/update payload for one post.
// SlideData carries the JSON-serialized slides with identity tokens
// stripped.
type PostRecord struct {
	Category      string `json:"category"`
	Country       string `json:"country,omitempty"`
	Platform      string `json:"platform"`
	TemplateID    string `json:"templateId,omitempty"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	Tone          string `json:"tone,omitempty"`
	SlideData     string `json:"slideData"`
	CaptionA      string `json:"captionA"`
	CaptionB      string `json:"captionB"`
	HashtagsA     string `json:"hashtagsA"`
	HashtagsB     string `json:"hashtagsB"`
	CTAText       string `json:"ctaText"`
	ArcID         string `json:"arcId,omitempty"`
	EpisodeNumber int    `json:"episodeNumber,omitempty"`
}

// SavedPost is one persisted post record.
type SavedPost struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
}

// MultiPlatformRequest persists one logical content item as N linked
// sibling posts, optionally content-adapted per platform.
type MultiPlatformRequest struct {
	PostData       PostRecord `json:"postData"`
	Platforms      []string   `json:"platforms"`
	AdaptContent   bool       `json:"adaptContent"`
	SourcePlatform string     `json:"sourcePlatform"`
}

// ExportRecord marks a post as exported; the backend tracks "saved"
// and "exported" as distinct states.
type ExportRecord struct {
	PostID     string `json:"postId"`
	Platform   string `json:"platform"`
	Resolution string `json:"resolution"`
	SlideCount int    `json:"slideCount"`
}

// Episode links a post into a narrative arc.
type Episode struct {
	ArcID         string `json:"arcId"`
	EpisodeNumber int    `json:"episodeNumber"`
	PostID        string `json:"postId"`
	Title         string `json:"title"`
}

type Service struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
	logger     *logger.Logger
}

func New(baseURL, apiKey string, client *httpclient.Client, log *logger.Logger) *Service {
	return &Service{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
		logger:     log,
	}
}

// RecordFromDraft builds the backend payload for d, titling the post
// after the first headline and stripping slide identity tokens.
func RecordFromDraft(d draft.Draft, platform draft.Platform) (PostRecord, error) {
	slideData, err := json.Marshal(draft.StripDragIDs(d.Slides))
	if err != nil {
		return PostRecord{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to serialize slides")
	}
	title := ""
	if len(d.Slides) > 0 {
		title = d.Slides[0].Headline
	}
	rec := PostRecord{
		Category:   d.Category,
		Country:    d.Country,
		Platform:   string(platform),
		TemplateID: d.TemplateID,
		Title:      title,
		Status:     "draft",
		Tone:       d.Tone,
		SlideData:  string(slideData),
		CaptionA:   d.CaptionA,
		CaptionB:   d.CaptionB,
		HashtagsA:  d.HashtagsA,
		HashtagsB:  d.HashtagsB,
		CTAText:    d.CTAText,
	}
	if d.Arc != nil {
		rec.ArcID = d.Arc.ID
		rec.EpisodeNumber = d.Arc.EpisodeNumber
	}
	return rec, nil
}

// SavePost creates or updates one post record and returns its id.
func (s *Service) SavePost(ctx context.Context, rec PostRecord) (string, error) {
	respBody, err := s.call(ctx, http.MethodPost, "/posts", rec)
	if err != nil {
		return "", err
	}
	var saved SavedPost
	if err := json.Unmarshal(respBody, &saved); err != nil {
		return "", errors.Wrap(err, errors.ErrCodePersistence, "failed to parse save response")
	}
	return saved.ID, nil
}

// SaveMultiPlatform persists one sibling post per requested platform.
func (s *Service) SaveMultiPlatform(ctx context.Context, req MultiPlatformRequest) ([]SavedPost, error) {
	respBody, err := s.call(ctx, http.MethodPost, "/posts/multi-platform", req)
	if err != nil {
		return nil, err
	}
	var saved []SavedPost
	if err := json.Unmarshal(respBody, &saved); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to parse multi-platform response")
	}
	if len(saved) != len(req.Platforms) {
		s.logger.Warn("backend returned unexpected sibling count",
			"want", len(req.Platforms), "got", len(saved))
	}
	return saved, nil
}

// RecordExport records the export act for an already saved post.
func (s *Service) RecordExport(ctx context.Context, rec ExportRecord) error {
	_, err := s.call(ctx, http.MethodPost, "/exports", rec)
	return err
}

// UpsertEpisode creates or updates the episode record of an arc-linked
// post.
func (s *Service) UpsertEpisode(ctx context.Context, ep Episode) error {
	_, err := s.call(ctx, http.MethodPut, "/episodes", ep)
	return err
}

func (s *Service) call(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	url := s.baseURL + path
	if s.apiKey != "" {
		url = fmt.Sprintf("%s?key=%s", url, s.apiKey)
	}

	var resp *http.Response
	if method == http.MethodPut {
		resp, err = s.httpClient.PutJSON(ctx, url, bodyBytes)
	} else {
		resp, err = s.httpClient.PostJSON(ctx, url, bodyBytes)
	}

	switch httpclient.Classify(resp, err) {
	case httpclient.ClassOffline:
		return nil, errors.Wrap(err, errors.ErrCodeOffline, "backend unreachable")
	case httpclient.ClassRateLimited:
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeRateLimited, "backend is rate limited, try again later")
	case httpclient.ClassUpstream:
		s.logger.Error("backend API error", "status", resp.StatusCode, "path", path)
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodePersistence, fmt.Sprintf("backend returned %d", resp.StatusCode))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to read response")
	}
	return respBody, nil
}
