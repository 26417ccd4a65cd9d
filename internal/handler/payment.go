package handler

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/dto"
	"bookstore-payments/internal/middleware"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	proofService   service.ProofService
}

func NewPaymentHandler(paymentService service.PaymentService, proofService service.ProofService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		proofService:   proofService,
	}
}

func (h *PaymentHandler) ListNotifications(c echo.Context) error {
	ctx := c.Request().Context()

	status := model.NotificationStatus(c.QueryParam("status"))
	notifications, err := h.paymentService.ListNotifications(ctx, middleware.IdentityFrom(c), status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notifications)
}

func (h *PaymentHandler) GetNotification(c echo.Context) error {
	ctx := c.Request().Context()

	notification, err := h.paymentService.GetNotification(ctx, middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notification)
}

func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	return h.transition(c, model.NotificationStatus(req.Status), req.Notes)
}

func (h *PaymentHandler) Confirm(c echo.Context) error {
	return h.staffAction(c, model.NotificationStatusConfirmed)
}

func (h *PaymentHandler) Reject(c echo.Context) error {
	return h.staffAction(c, model.NotificationStatusRejected)
}

func (h *PaymentHandler) Cancel(c echo.Context) error {
	return h.staffAction(c, model.NotificationStatusCancelled)
}

func (h *PaymentHandler) staffAction(c echo.Context, to model.NotificationStatus) error {
	var req dto.StaffActionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
		}
		if err := c.Validate(&req); err != nil {
			return err
		}
	}

	return h.transition(c, to, req.Notes)
}

func (h *PaymentHandler) transition(c echo.Context, to model.NotificationStatus, notes string) error {
	ctx := c.Request().Context()

	notification, err := h.paymentService.UpdateNotificationStatus(ctx, c.Param("id"), to, service.StatusChange{
		Actor: middleware.IdentityFrom(c),
		Notes: notes,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notification)
}

func (h *PaymentHandler) SubmitProof(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("multipart field \"file\" is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return apperr.Validation("read uploaded file: %v", err)
	}
	defer f.Close()

	proof, notification, err := h.proofService.SubmitProof(ctx, c.Param("id"), middleware.IdentityFrom(c), service.ProofFile{
		Name:    fileHeader.Filename,
		Size:    fileHeader.Size,
		Content: f,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, &dto.SubmitProofResponse{
		Proof:        proof,
		Notification: notification,
	})
}
