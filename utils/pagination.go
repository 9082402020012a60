package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageLimit = 15
	MaxPageLimit     = 100

	// MaxPage bounds the page number so offsets stay far from int overflow.
	MaxPage = 1_000_000
)

type Pagination struct {
	Page      int
	Limit     int
	Ascending bool
}

// PaginationFromQuery reads page, limit and sort (asc|desc) query
// parameters, falling back to page 1, 15 per page, newest first.
func PaginationFromQuery(ctx *gin.Context) Pagination {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	page = min(page, MaxPage)
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil || limit < 1 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)

	return Pagination{Page: page, Limit: limit, Ascending: ctx.DefaultQuery("sort", "desc") == "asc"}
}

// Offset is the number of rows before the page.
func (p Pagination) Offset() int {
	return (max(p.Page, 1) - 1) * p.Limit
}

// Metadata describes where a page sits in the full result set.
func (p Pagination) Metadata(total int64) gin.H {
	previousPage := p.Page - 1
	nextPage := p.Page + 1
	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))

	return gin.H{
		"total":        total,
		"currentPage":  p.Page,
		"limit":        p.Limit,
		"totalPages":   totalPages,
		"hasPrevPage":  previousPage > 0,
		"hasNextPage":  totalPages > p.Page,
		"previousPage": previousPage,
		"nextPage":     nextPage,
	}
}
