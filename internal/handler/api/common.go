package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"quickride/internal/models"
	"quickride/internal/repository"
)

// Response helpers.
func successResponse(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func errorResponse(c echo.Context, status int, msg string) error {
	return c.JSON(status, models.APIResponse{
		Success: false,
		Message: msg,
	})
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		limit = 50
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pageParams parses ?page= and ?limit= query parameters with defaults.
func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// Repos bundles all repositories needed by API handlers.
type Repos struct {
	User    *repository.UserRepository
	Car     *repository.CarRepository
	Booking *repository.BookingRepository
	Payment *repository.PaymentRepository
}
