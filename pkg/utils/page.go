package utils

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// Page is a 1-based page request.
type Page struct {
	Page int
	Size int
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Page - 1) * p.Size }

// maxPage keeps Offset far from overflowing int.
const maxPage = 100000

// ParsePage reads ?page=&pageSize= (defaults 1 and 10, size capped at 50,
// page capped at maxPage).
func ParsePage(c *fiber.Ctx) Page {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return Page{Page: page, Size: size}
}

// NewPage wraps items into the list response shape. A nil slice is sent as [].
func NewPage[T any](p Page, total int64, items []T) models.Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Size)))
	}
	return models.Page[T]{
		Page:     p.Page,
		PageSize: p.Size,
		Total:    total,
		Pages:    pages,
		Items:    items,
	}
}
