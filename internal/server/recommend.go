package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/azadi/internal/llm"
	"github.com/mohammad-safakhou/azadi/internal/logging"
	"github.com/mohammad-safakhou/azadi/internal/recommend"
	"github.com/mohammad-safakhou/azadi/models"
)

// Recommender produces verified recommendation batches.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Result, error)
}

// RecommendHandler serves the three recommendation panels.
type RecommendHandler struct {
	Recommender Recommender
}

func (h *RecommendHandler) Register(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.POST("/recommend-articles", h.articles, m...)
	g.POST("/recommend-charities", h.charities, m...)
	g.POST("/nearby-protests", h.protests, m...)
}

// articles godoc
// @Summary Recommend articles for the viewer's issues
// @Accept json
// @Produce json
// @Param request body RecommendRequest true "Issues"
// @Success 200 {object} ArticlesResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/recommend-articles [post]
func (h *RecommendHandler) articles(c echo.Context) error {
	var req RecommendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.run(c, recommend.Request{Kind: models.KindArticles, Issues: req.Issues})
	if err != nil {
		return err
	}
	resp := ArticlesResponse{Recommendations: res.Batch.Articles, Cached: res.Cached}
	if resp.Recommendations == nil {
		resp.Recommendations = []models.Article{}
	}
	if res.Empty {
		resp.Message = msgEmpty
	}
	return c.JSON(http.StatusOK, resp)
}

// charities godoc
// @Summary Recommend charities for the viewer's issues
// @Accept json
// @Produce json
// @Param request body RecommendRequest true "Issues"
// @Success 200 {object} CharitiesResponse
// @Router /api/recommend-charities [post]
func (h *RecommendHandler) charities(c echo.Context) error {
	var req RecommendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.run(c, recommend.Request{Kind: models.KindCharities, Issues: req.Issues})
	if err != nil {
		return err
	}
	resp := CharitiesResponse{Recommendations: res.Batch.Charities, Cached: res.Cached}
	if resp.Recommendations == nil {
		resp.Recommendations = []models.Charity{}
	}
	if res.Empty {
		resp.Message = msgEmpty
	}
	return c.JSON(http.StatusOK, resp)
}

// protests godoc
// @Summary Upcoming protests near a city for the viewer's issues
// @Accept json
// @Produce json
// @Param request body ProtestsRequest true "City and issues"
// @Success 200 {object} ProtestsResponse
// @Router /api/nearby-protests [post]
func (h *RecommendHandler) protests(c echo.Context) error {
	var req ProtestsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.run(c, recommend.Request{Kind: models.KindProtests, Issues: req.Issues, City: req.City})
	if err != nil {
		return err
	}
	resp := ProtestsResponse{Protests: res.Batch.Protests, City: req.City, Cached: res.Cached}
	if resp.Protests == nil {
		resp.Protests = []models.Protest{}
	}
	if res.Empty {
		resp.Message = msgEmpty
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RecommendHandler) run(c echo.Context, req recommend.Request) (recommend.Result, error) {
	ctx := c.Request().Context()
	res, err := h.Recommender.Recommend(ctx, req)
	if err != nil {
		return recommend.Result{}, recommendError(err)
	}
	logging.Ctx(ctx).Info().
		Str("kind", string(req.Kind)).
		Bool("cached", res.Cached).
		Int("records", res.Batch.Len()).
		Msg("recommendations served")
	return res, nil
}

// recommendError maps orchestrator failures to HTTP errors.
func recommendError(err error) error {
	var cfgErr llm.ConfigurationError
	var upErr *llm.UpstreamError
	switch {
	case errors.As(err, &cfgErr):
		return echo.NewHTTPError(http.StatusInternalServerError, msgMissingAPIKey).SetInternal(err)
	case errors.Is(err, recommend.ErrNoIssues):
		return echo.NewHTTPError(http.StatusBadRequest, msgNoIssues).SetInternal(err)
	case errors.Is(err, recommend.ErrNoCity):
		return echo.NewHTTPError(http.StatusBadRequest, msgNoCity).SetInternal(err)
	case errors.Is(err, models.ErrUnknownKind):
		return echo.NewHTTPError(http.StatusNotFound, "unknown recommendation kind").SetInternal(err)
	// Model errors wrap context errors; a timeout is a timeout wherever it surfaced.
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "The AI service took too long. Try again.").SetInternal(err)
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled").SetInternal(err)
	case errors.As(err, &upErr):
		return echo.NewHTTPError(http.StatusBadGateway, upErr.UserMessage()).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong. Try again.").SetInternal(err)
}
