package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Kariqs/franchise-api/store"
	"github.com/Kariqs/franchise-api/utils"
	"github.com/gin-gonic/gin"
)

// GetProducts lists orderable catalog items, optionally filtered by a name
// search or category.
func (h *Handler) GetProducts(ctx *gin.Context) {
	page := utils.PaginationFromQuery(ctx)
	items, total, err := h.Catalog.ListItems(ctx.Request.Context(), store.CatalogFilter{
		Search:   strings.TrimSpace(ctx.Query("search")),
		Category: ctx.Query("category"),
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		respondWithError(ctx, http.StatusInternalServerError, "Unable to fetch products", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"products": items,
		"metadata": page.Metadata(total),
	})
}

func (h *Handler) GetProduct(ctx *gin.Context) {
	item, err := h.Catalog.GetItem(ctx.Request.Context(), ctx.Param("itemId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(ctx, http.StatusNotFound, "Product not found", nil)
		} else {
			respondWithError(ctx, http.StatusInternalServerError, "Unable to retrieve product", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, item)
}
