package handler

import (
	"bookstore-payments/internal/dto"
	"bookstore-payments/internal/middleware"
	"bookstore-payments/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalogService service.CatalogService
	accessService  service.AccessService
}

func NewCatalogHandler(catalogService service.CatalogService, accessService service.AccessService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		accessService:  accessService,
	}
}

func (h *CatalogHandler) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()

	books, err := h.catalogService.ListBooks(ctx)
	if err != nil {
		return err
	}

	out := make([]dto.BookResponse, len(books))
	for i, b := range books {
		out[i] = dto.BookResponse{Book: b, HasDigitalFile: b.HasDigitalFile()}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetBook(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.catalogService.GetBook(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.BookResponse{Book: book, HasDigitalFile: book.HasDigitalFile()})
}

func (h *CatalogHandler) CheckAccess(c echo.Context) error {
	ctx := c.Request().Context()
	bookID := c.Param("id")

	allowed, err := h.accessService.CanDownload(ctx, bookID, middleware.IdentityFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.AccessResponse{BookID: bookID, Allowed: allowed})
}

func (h *CatalogHandler) Download(c echo.Context) error {
	ctx := c.Request().Context()
	bookID := c.Param("id")

	url, err := h.accessService.RevealDownload(ctx, bookID, middleware.IdentityFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.DownloadResponse{BookID: bookID, URL: url})
}
