package handler

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/dto"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/middleware"
	"bookstore-payments/internal/service"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type StatsHandler struct {
	statsService service.StatsService
	log          *slog.Logger
}

func NewStatsHandler(statsService service.StatsService, log *slog.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		log:          log,
	}
}

func (h *StatsHandler) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperr.ErrUnauthenticated
	}

	var req dto.AddReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	review, stats, err := h.statsService.AddBookReview(ctx, service.ReviewInput{
		BookID:   c.Param("id"),
		UserID:   identity.UserID,
		UserName: identity.Name,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, &dto.AddReviewResponse{Review: review, Stats: stats})
}

func (h *StatsHandler) ListReviews(c echo.Context) error {
	ctx := c.Request().Context()

	reviews, err := h.statsService.ListReviews(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reviews)
}

func (h *StatsHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.statsService.GetStats(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// IncrementView never fails the page view that triggered it.
func (h *StatsHandler) IncrementView(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.statsService.IncrementBookView(ctx, c.Param("id")); err != nil {
		h.log.WarnContext(ctx, "increment book view", slog.String("book_id", c.Param("id")), logger.Err(err))
	}

	return c.NoContent(http.StatusAccepted)
}
