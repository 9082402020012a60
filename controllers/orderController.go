package controllers

import (
	"net/http"

	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/orders"
	"github.com/Kariqs/franchise-api/utils"
	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	RedeemPoints int64 `json:"redeemPoints" binding:"min=0"`
}

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,orderstatus"`
}

func toPage(p utils.Pagination) orders.Page {
	return orders.Page{Number: p.Page, Limit: p.Limit, Ascending: p.Ascending}
}

func (h *Handler) Checkout(ctx *gin.Context) {
	var body checkoutRequest
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, &body) {
		return
	}

	order, err := h.Orders.Checkout(ctx.Request.Context(), middlewares.MemberID(ctx), body.RedeemPoints)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusCreated, gin.H{"message": msgOrderPlaced, "order": order})
}

func (h *Handler) GetMyOrders(ctx *gin.Context) {
	page := utils.PaginationFromQuery(ctx)
	list, total, err := h.Orders.ListByMember(ctx.Request.Context(), middlewares.MemberID(ctx), toPage(page))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"orders": list, "metadata": page.Metadata(total)})
}

func (h *Handler) GetMyOrder(ctx *gin.Context) {
	order, err := h.Orders.GetForMember(ctx.Request.Context(), middlewares.MemberID(ctx), ctx.Param("orderId"))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"order": order})
}

func (h *Handler) CancelOrder(ctx *gin.Context) {
	order, err := h.Orders.CancelForMember(ctx.Request.Context(), middlewares.MemberID(ctx), ctx.Param("orderId"))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgOrderCancelled, "order": order})
}

// GetOrders lists every member's orders for admins, optionally by status.
func (h *Handler) GetOrders(ctx *gin.Context) {
	page := utils.PaginationFromQuery(ctx)
	list, total, err := h.Orders.List(ctx.Request.Context(), toPage(page), models.OrderStatus(ctx.Query("status")))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"orders": list, "metadata": page.Metadata(total)})
}

func (h *Handler) GetOrderByID(ctx *gin.Context) {
	order, err := h.Orders.Get(ctx.Request.Context(), ctx.Param("orderId"))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"order": order})
}

func (h *Handler) UpdateOrderStatus(ctx *gin.Context) {
	var body orderStatusRequest
	if !bindJSON(ctx, &body) {
		return
	}

	order, err := h.Orders.Transition(ctx.Request.Context(), ctx.Param("orderId"), body.Status)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgOrderStatusUpdated, "order": order})
}
