package controllers

import (
	"net/http"
	"time"

	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/payments"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type initiatePaymentRequest struct {
	Method    models.PaymentMethod `json:"method" binding:"required,paymentmethod"`
	Email     string               `json:"email" binding:"omitempty,email"`
	Phone     string               `json:"phone"`
	FirstName string               `json:"firstName"`
	LastName  string               `json:"lastName"`
}

type completePaymentRequest struct {
	ExternalRef string `json:"externalRef"`
}

type failPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) InitiatePayment(ctx *gin.Context) {
	var body initiatePaymentRequest
	if !bindJSON(ctx, &body) {
		return
	}
	orderID := ctx.Param("orderId")
	if _, err := h.Orders.GetForMember(ctx.Request.Context(), middlewares.MemberID(ctx), orderID); err != nil {
		h.sendError(ctx, err)
		return
	}

	payer := payments.Payer{Email: body.Email, Phone: body.Phone, FirstName: body.FirstName, LastName: body.LastName}
	txn, err := h.Payments.Initiate(ctx.Request.Context(), orderID, body.Method, payer)
	if err != nil {
		h.sendError(ctx, err)
		return
	}

	if txn.Method == models.MethodBankTransfer {
		sendJSONResponse(ctx, http.StatusCreated, gin.H{"message": msgTransferPending, "transaction": txn})
		return
	}
	sendJSONResponse(ctx, http.StatusCreated, gin.H{
		"message":           msgPaymentStarted,
		"transaction":       txn,
		"redirect_url":      txn.RedirectURL,
		"order_tracking_id": txn.ExternalRef,
	})
}

func (h *Handler) GetOrderPayments(ctx *gin.Context) {
	orderID := ctx.Param("orderId")
	if _, err := h.Orders.GetForMember(ctx.Request.Context(), middlewares.MemberID(ctx), orderID); err != nil {
		h.sendError(ctx, err)
		return
	}
	list, err := h.Payments.Payments(ctx.Request.Context(), orderID)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"transactions": list})
}

// HandlePesapalIPN accepts the gateway's POST notification body or the GET
// callback query and answers in the shape the gateway expects.
func (h *Handler) HandlePesapalIPN(ctx *gin.Context) {
	var trackingID, merchantRef string
	if ctx.Request.Method == http.MethodPost {
		var payload struct {
			OrderTrackingId        string `json:"OrderTrackingId"`
			OrderMerchantReference string `json:"OrderMerchantReference"`
		}
		if err := ctx.ShouldBindJSON(&payload); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		trackingID = payload.OrderTrackingId
		merchantRef = payload.OrderMerchantReference
	} else {
		trackingID = ctx.Query("OrderTrackingId")
		if trackingID == "" {
			trackingID = ctx.Query("orderTrackingId")
		}
		merchantRef = ctx.Query("OrderMerchantReference")
		if merchantRef == "" {
			merchantRef = ctx.Query("orderMerchantReference")
		}
	}

	if trackingID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msgMissingParameters})
		return
	}

	result, err := h.Payments.HandleGatewayCallback(ctx.Request.Context(), trackingID)
	status := http.StatusOK
	if err != nil {
		status = StatusFor(err)
		h.Logger.Warn("gateway notification not applied",
			zap.String("trackingId", trackingID),
			zap.Int("status", status),
			zap.Error(err))
	}

	body := gin.H{
		"orderNotificationType":  "IPNCHANGE",
		"orderTrackingId":        trackingID,
		"orderMerchantReference": merchantRef,
		"status":                 status,
	}
	if result != nil {
		body["paymentStatus"] = result.GatewayStatus
	}
	ctx.JSON(status, body)
}

func (h *Handler) CompletePayment(ctx *gin.Context) {
	var body completePaymentRequest
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, &body) {
		return
	}

	txn, err := h.Payments.Complete(ctx.Request.Context(), ctx.Param("transactionId"), body.ExternalRef)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgPaymentCompleted, "transaction": txn})
}

func (h *Handler) FailPayment(ctx *gin.Context) {
	var body failPaymentRequest
	if !bindJSON(ctx, &body) {
		return
	}

	txn, err := h.Payments.Fail(ctx.Request.Context(), ctx.Param("transactionId"), body.Reason)
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": msgPaymentFailed, "transaction": txn})
}

func (h *Handler) ExpirePayments(ctx *gin.Context) {
	expired, err := h.Payments.ExpireStale(ctx.Request.Context(), time.Now())
	if err != nil {
		h.sendError(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"expired": expired})
}
