package genai

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

// PostParams is the request body for a full-post generation.
type PostParams struct {
	Category   string `json:"category"`
	Topic      string `json:"topic,omitempty"`
	KeyPoints  string `json:"keyPoints,omitempty"`
	Country    string `json:"country,omitempty"`
	Platform   string `json:"platform"`
	SlideCount int    `json:"slideCount"`
	Tone       string `json:"tone"`
	StudentID  string `json:"studentId,omitempty"`
}

// PostResult is the generated content for a whole draft.
type PostResult struct {
	Slides    []draft.Slide `json:"slides"`
	CaptionA  string        `json:"captionA"`
	CaptionB  string        `json:"captionB"`
	HashtagsA string        `json:"hashtagsA"`
	HashtagsB string        `json:"hashtagsB"`
	CTAText   string        `json:"ctaText"`
}

// FieldParams is the request body for a single-field regeneration.
type FieldParams struct {
	Field      string `json:"field"`
	SlideIndex int    `json:"slideIndex"`
	Category   string `json:"category,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Tone       string `json:"tone,omitempty"`
	Current    string `json:"current,omitempty"`
}

type Service struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *httpclient.Client
	logger     *logger.Logger
}

func New(baseURL, apiKey, model string, client *httpclient.Client, log *logger.Logger) *Service {
	return &Service{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
		logger:     log,
	}
}

// GeneratePost asks the generation service for a complete draft.
func (s *Service) GeneratePost(ctx context.Context, params PostParams) (*PostResult, error) {
	body := struct {
		PostParams
		Model string `json:"model"`
	}{params, s.model}

	respBody, err := s.call(ctx, s.baseURL+"/generate", body)
	if err != nil {
		return nil, err
	}

	var result PostResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGeneration, "failed to parse generation response")
	}
	if len(result.Slides) == 0 {
		return nil, errors.New(errors.ErrCodeGeneration, "generation returned no slides")
	}
	return &result, nil
}

// RegenerateField asks for one fresh field value.
func (s *Service) RegenerateField(ctx context.Context, params FieldParams) (string, error) {
	body := struct {
		FieldParams
		Model string `json:"model"`
	}{params, s.model}

	respBody, err := s.call(ctx, s.baseURL+"/regenerate-field", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeGeneration, "failed to parse field response")
	}
	return result.Value, nil
}

func (s *Service) call(ctx context.Context, url string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	if s.apiKey != "" {
		url = fmt.Sprintf("%s?key=%s", url, s.apiKey)
	}

	resp, err := s.httpClient.PostJSON(ctx, url, bodyBytes)
	switch httpclient.Classify(resp, err) {
	case httpclient.ClassOffline:
		return nil, errors.Wrap(err, errors.ErrCodeOffline, "generation service unreachable")
	case httpclient.ClassRateLimited:
		msg := readErrorMessage(resp)
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeRateLimited, msg)
	case httpclient.ClassUpstream:
		s.logger.Error("generation API error", "status", resp.StatusCode, "url", url)
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeGeneration, fmt.Sprintf("generation API returned %d", resp.StatusCode))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGeneration, "failed to read response")
	}
	return respBody, nil
}

// readErrorMessage surfaces the service's own backoff message verbatim
// when it sends one.
func readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
	}
	return "generation service is rate limited, try again later"
}
