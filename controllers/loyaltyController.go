package controllers

import (
	"net/http"

	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/gin-gonic/gin"
)

type pointsRequest struct {
	Points      int64  `json:"points" binding:"required,gt=0"`
	Description string `json:"description"`
}

func (h *Handler) GetLoyaltyBalance(ctx *gin.Context) {
	account, err := h.Ledger.Account(ctx.Request.Context(), middlewares.MemberID(ctx))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"account": account})
}

func (h *Handler) GetLoyaltyTransactions(ctx *gin.Context) {
	history, err := h.Ledger.History(ctx.Request.Context(), middlewares.MemberID(ctx))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"transactions": history})
}

func (h *Handler) RedeemPoints(ctx *gin.Context) {
	var body pointsRequest
	if !bindJSON(ctx, &body) {
		return
	}
	if body.Description == "" {
		body.Description = "Redeemed by member"
	}

	entry, err := h.Ledger.Redeem(ctx.Request.Context(), middlewares.MemberID(ctx), body.Points, body.Description, "")
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgPointsRedeemed, "transaction": entry.Transaction, "account": entry.Account})
}

func (h *Handler) AdjustPoints(ctx *gin.Context) {
	var body pointsRequest
	if !bindJSON(ctx, &body) {
		return
	}
	if body.Description == "" {
		body.Description = "Manual addition"
	}

	entry, err := h.Ledger.ManualAdjust(ctx.Request.Context(), ctx.Param("memberId"), body.Points, body.Description)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgPointsAdded, "transaction": entry.Transaction, "account": entry.Account})
}

func (h *Handler) RebuildLoyalty(ctx *gin.Context) {
	result, err := h.Ledger.Rebuild(ctx.Request.Context(), ctx.Param("memberId"))
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"rebuild": result})
}
