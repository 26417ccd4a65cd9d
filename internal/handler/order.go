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

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperr.ErrUnauthenticated
	}

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	customer := *identity
	if req.CustomerName != "" {
		customer.Name = req.CustomerName
	}
	if req.CustomerEmail != "" {
		customer.Email = req.CustomerEmail
	}

	input := service.CreateOrderInput{
		IdempotencyKey: req.IdempotencyKey,
		Customer:       customer,
		Total:          req.Total,
		Status:         model.OrderStatus(req.Status),
	}
	if key := c.Request().Header.Get(idempotencyHeader); key != "" {
		input.IdempotencyKey = key
	}
	if req.Date != nil {
		input.Date = *req.Date
	}
	for _, item := range req.Items {
		input.Cart.Items = append(input.Cart.Items, model.CartItem{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			AuthorID:  item.AuthorID,
		})
	}

	result, err := h.orderService.CreateOrder(ctx, input)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, &dto.CreateOrderResponse{
		Order:        result.Order,
		Notification: result.Notification,
	})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.GetOrder(ctx, middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListOrders(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}
