package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/felitsch/postforge/internal/arbiter"
	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/export"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/internal/render"
	"github.com/felitsch/postforge/internal/service/genai"
	"github.com/felitsch/postforge/internal/session"
	"github.com/felitsch/postforge/pkg/errors"
)

type Handler struct {
	sessions *session.Registry
	exporter *export.Orchestrator
	logger   *logger.Logger
}

func NewHandler(sessions *session.Registry, exporter *export.Orchestrator, log *logger.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		exporter: exporter,
		logger:   log,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}

	var initial draft.Draft
	if req.Draft != nil {
		initial = *req.Draft
	}
	s := h.sessions.Create(initial)
	c.JSON(http.StatusCreated, h.sessionResponse(s))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Remove(c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) UpdateDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := applyUpdate(s.Store, req); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func applyUpdate(store *draft.Store, req UpdateDraftRequest) error {
	type fieldEdit struct {
		field draft.Field
		value *string
	}
	for _, e := range []fieldEdit{
		{draft.FieldCaptionA, req.CaptionA},
		{draft.FieldCaptionB, req.CaptionB},
		{draft.FieldHashtagsA, req.HashtagsA},
		{draft.FieldHashtagsB, req.HashtagsB},
		{draft.FieldCTAText, req.CTAText},
	} {
		if e.value == nil {
			continue
		}
		if err := store.SetField(e.field, 0, *e.value); err != nil {
			return err
		}
	}
	if req.Category != nil {
		store.SetCategory(*req.Category)
	}
	if req.Platform != nil {
		if err := store.SetPlatform(*req.Platform); err != nil {
			return err
		}
	}
	if req.SelectedPlatforms != nil {
		if err := store.SetSelectedPlatforms(req.SelectedPlatforms); err != nil {
			return err
		}
	}
	if req.Arc != nil {
		store.SetArc(req.Arc)
	}
	for _, edit := range req.Slides {
		if !edit.Field.Valid() || !edit.Field.PerSlide() {
			return errors.New(errors.ErrCodeValidation, "invalid slide field "+string(edit.Field))
		}
		if err := store.SetField(edit.Field, edit.Index, edit.Value); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) AddSlide(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req AddSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s.Store.AddSlide(req.Slide)
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) RemoveSlide(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.badRequest(c, fmt.Errorf("invalid slide index"))
		return
	}
	// Removing the last remaining slide is a no-op, not an error.
	if _, err := s.Store.RemoveSlide(index); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) MoveSlide(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req MoveSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := s.Store.MoveSlide(req.From, req.To); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) Generate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	var err error
	switch arbiter.Kind(req.Kind) {
	case arbiter.KindFull:
		err = s.Arbiter.GenerateFull(c.Request.Context(), genai.PostParams{
			Category:   req.Category,
			Topic:      req.Topic,
			KeyPoints:  req.KeyPoints,
			Country:    req.Country,
			Platform:   req.Platform,
			SlideCount: req.SlideCount,
			Tone:       req.Tone,
			StudentID:  req.StudentID,
		})
	case arbiter.KindField:
		err = s.Arbiter.RegenerateField(c.Request.Context(), draft.Field(req.Field), req.SlideIndex, genai.FieldParams{
			Category: req.Category,
			Platform: req.Platform,
			Tone:     req.Tone,
		})
	default:
		err = errors.New(errors.ErrCodeValidation, "unknown generation kind "+req.Kind)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"draft":   s.Store.State(),
		"pending": pendingResponse(s.Arbiter.Pending()),
	})
}

func (h *Handler) GetPending(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pendingResponse(s.Arbiter.Pending()))
}

func (h *Handler) AcceptPending(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Arbiter.AcceptPending(); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) DismissPending(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Arbiter.DismissPending(); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) Undo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.History.Undo()
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) Redo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.History.Redo()
	c.JSON(http.StatusOK, h.sessionResponse(s))
}

func (h *Handler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.exporter.ExportDraft(c.Request.Context(), s.Store.State(), req.job())
	if err != nil {
		h.handleError(c, err)
		return
	}
	s.Store.ClearDirty()

	for _, w := range result.Warnings {
		c.Writer.Header().Add("X-Export-Warning", w)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) sessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.ID,
		Draft:     s.Store.State(),
		CanUndo:   s.History.CanUndo(),
		CanRedo:   s.History.CanRedo(),
		Dirty:     s.Store.Dirty(),
	}
}

func pendingResponse(p *arbiter.Pending) PendingResponse {
	if p == nil {
		return PendingResponse{}
	}
	return PendingResponse{
		Pending:    true,
		Kind:       string(p.Kind),
		Field:      string(p.Field),
		SlideIndex: p.SlideIndex,
		Value:      p.Value,
		Full:       p.Full,
	}
}

func qualityFromString(q string) render.Quality {
	if q == "" {
		return render.Quality1080
	}
	return render.Quality(q)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Error("invalid request", "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    errors.ErrCodeValidation,
		Message: err.Error(),
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	code := errors.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeValidation:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeOffline:
		status = http.StatusServiceUnavailable
	case errors.ErrCodeGeneration, errors.ErrCodePersistence:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		h.logger.Error("request failed", "code", code, "error", err)
	}
	c.JSON(status, ErrorResponse{Code: code, Message: err.Error()})
}
