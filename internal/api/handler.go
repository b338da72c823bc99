package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/WyZzYx/Jobsight/internal/breaker"
	"github.com/WyZzYx/Jobsight/internal/model"
)

// Searcher is the aggregation service as seen by the HTTP layer.
type Searcher interface {
	SearchAndStore(ctx context.Context, q model.JobSearchQuery) (model.PagedResult, error)
	Page(ctx context.Context, q model.JobSearchQuery) (model.PagedResult, error)
	TopSkills(ctx context.Context, title, location string, limit int) ([]model.SkillCount, error)
}

// ProviderLister returns every registered provider, enabled or not.
type ProviderLister interface {
	Providers() []model.Provider
}

// BreakerStates reports the breaker state per provider name.
type BreakerStates interface {
	States() map[string]breaker.State
}

// Handler serves the API routes.
type Handler struct {
	searcher  Searcher
	providers ProviderLister
	breakers  BreakerStates
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(s Searcher, providers ProviderLister, breakers BreakerStates, logger *slog.Logger) *Handler {
	return &Handler{searcher: s, providers: providers, breakers: breakers, logger: logger}
}

type searchRequest struct {
	Title      string   `json:"title" binding:"max=128"`
	Location   string   `json:"location" binding:"max=128"`
	TechStack  []string `json:"techStack" binding:"max=20,dive,max=64"`
	RemoteOnly bool     `json:"remoteOnly"`
	Page       int      `json:"page" binding:"min=0,max=100000"`
	Size       int      `json:"size" binding:"min=0,max=100"`
}

type pageRequest struct {
	Title    string `form:"title" binding:"max=128"`
	Location string `form:"location" binding:"max=128"`
	Page     int    `form:"page" binding:"min=0,max=100000"`
	Size     int    `form:"size" binding:"min=0,max=100"`
}

type skillsRequest struct {
	Title    string `form:"title" binding:"max=128"`
	Location string `form:"location" binding:"max=128"`
	Limit    int    `form:"limit" binding:"min=0,max=100"`
}

type pageResponse struct {
	model.PagedResult
	TotalPages int `json:"totalPages"`
}

type providerStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Breaker string `json:"breaker"`
}

// Search handles POST /api/jobs/search
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	res, err := h.searcher.SearchAndStore(c.Request.Context(), model.JobSearchQuery{
		Title:      req.Title,
		Location:   req.Location,
		TechStack:  req.TechStack,
		RemoteOnly: req.RemoteOnly,
		Page:       req.Page,
		Size:       req.Size,
	})
	if err != nil {
		h.fail(c, "search failed", err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{PagedResult: res, TotalPages: res.TotalPages()})
}

// List handles GET /api/jobs
func (h *Handler) List(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}

	res, err := h.searcher.Page(c.Request.Context(), model.JobSearchQuery{
		Title:    req.Title,
		Location: req.Location,
		Page:     req.Page,
		Size:     req.Size,
	})
	if err != nil {
		h.fail(c, "listing postings failed", err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{PagedResult: res, TotalPages: res.TotalPages()})
}

// Skills handles GET /api/stats/skills
func (h *Handler) Skills(c *gin.Context) {
	var req skillsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}

	counts, err := h.searcher.TopSkills(c.Request.Context(), req.Title, req.Location, req.Limit)
	if err != nil {
		h.fail(c, "counting skills failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": counts})
}

// Providers handles GET /api/providers
func (h *Handler) Providers(c *gin.Context) {
	states := h.breakers.States()
	providers := h.providers.Providers()

	out := make([]providerStatus, 0, len(providers))
	for _, p := range providers {
		state, ok := states[p.Name()]
		if !ok {
			state = breaker.Closed
		}
		out = append(out, providerStatus{Name: p.Name(), Enabled: p.Enabled(), Breaker: state.String()})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, model.ErrStoreUnavailable):
		h.logger.Error(msg, "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Posting store temporarily unavailable"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(msg, "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
	default:
		h.logger.Error(msg, "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
