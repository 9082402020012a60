package controllers

import (
	"net/http"
	"strconv"

	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *Handler) AddToCart(ctx *gin.Context) {
	var body addToCartRequest
	if !bindJSON(ctx, &body) {
		return
	}

	view, err := h.Carts.AddToCart(ctx.Request.Context(), middlewares.MemberID(ctx), body.ItemID, body.Quantity)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgAddedToCart, "cart": view})
}

// UpdateCartQuantity clamps quantities below one to one.
func (h *Handler) UpdateCartQuantity(ctx *gin.Context) {
	var body updateQuantityRequest
	if !bindJSON(ctx, &body) {
		return
	}

	view, err := h.Carts.UpdateQuantity(ctx.Request.Context(), middlewares.MemberID(ctx), ctx.Param("itemId"), body.Quantity)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgCartUpdated, "cart": view})
}

func (h *Handler) RemoveFromCart(ctx *gin.Context) {
	view, err := h.Carts.RemoveFromCart(ctx.Request.Context(), middlewares.MemberID(ctx), ctx.Param("itemId"))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgItemRemoved, "cart": view})
}

func (h *Handler) ClearCart(ctx *gin.Context) {
	view, err := h.Carts.ClearCart(ctx.Request.Context(), middlewares.MemberID(ctx))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgCartCleared, "cart": view})
}

func (h *Handler) GetCart(ctx *gin.Context) {
	redeem, err := strconv.ParseInt(ctx.DefaultQuery("redeemPoints", "0"), 10, 64)
	if err != nil || redeem < 0 {
		sendErrorResponse(ctx, http.StatusBadRequest, "redeemPoints must be a non-negative whole number")
		return
	}

	view, err := h.Carts.GetSummary(ctx.Request.Context(), middlewares.MemberID(ctx), redeem)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"cart": view})
}
