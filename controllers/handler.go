package controllers

import (
	"errors"
	"net/http"

	"github.com/Kariqs/franchise-api/apperrors"
	"github.com/Kariqs/franchise-api/cart"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/loyalty"
	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/orders"
	"github.com/Kariqs/franchise-api/payments"
	"github.com/Kariqs/franchise-api/store"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	msgInvalidInput        = "invalid input"
	msgInternalServerError = "Internal server error"
	msgAddedToCart         = "Item added to cart"
	msgCartUpdated         = "Cart updated"
	msgItemRemoved         = "Item removed from cart"
	msgCartCleared         = "Cart cleared"
	msgOrderPlaced         = "Order placed successfully"
	msgOrderCancelled      = "Order cancelled"
	msgOrderStatusUpdated  = "Order status updated successfully."
	msgPaymentStarted      = "Payment initiated. Redirect user to payment."
	msgTransferPending     = "Awaiting bank transfer confirmation"
	msgPaymentCompleted    = "Payment completed"
	msgPaymentFailed       = "Payment marked as failed"
	msgPointsRedeemed      = "Points redeemed"
	msgPointsAdded         = "Points added"
	msgMissingParameters   = "Missing parameters"
)

type Handler struct {
	Carts    *cart.Service
	Orders   *orders.Manager
	Payments *payments.Processor
	Ledger   *loyalty.Ledger
	Catalog  store.CatalogRepository
	Bus      *events.Bus
	Logger   *zap.Logger
}

func sendJSONResponse(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, message string) {
	sendJSONResponse(ctx, status, gin.H{"message": message})
}

func respondWithError(ctx *gin.Context, statusCode int, message string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	ctx.JSON(statusCode, gin.H{
		"message": message,
		"error":   errMsg,
	})
}

// StatusFor maps an error's kind to its HTTP status.
func StatusFor(err error) int {
	kind, classified := apperrors.KindOf(err)
	if !classified {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict, apperrors.KindInvariant:
		return http.StatusConflict
	case apperrors.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	case apperrors.KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendError answers with the display message of err. Unclassified errors are
// logged and hidden behind a generic message.
func (h *Handler) sendError(ctx *gin.Context, err error) {
	status := StatusFor(err)
	switch {
	case status == http.StatusInternalServerError:
		h.Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		sendErrorResponse(ctx, status, msgInternalServerError)
		return
	case apperrors.KindIs(err, apperrors.KindInvariant):
		h.Logger.Error("invariant violation", zap.String("path", ctx.FullPath()), zap.Error(err))
	case status == http.StatusBadGateway:
		h.Logger.Warn("upstream failure", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	sendErrorResponse(ctx, status, apperrors.Message(err))
}

// bindJSON answers 400 for malformed or invalid bodies.
func bindJSON(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		respondWithError(ctx, http.StatusBadRequest, msgInvalidInput, err)
		return false
	}
	return true
}

// RegisterValidators installs the custom binding tags used by request
// bodies. It is safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	if err := v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		m := models.PaymentMethod(fl.Field().String())
		return m == models.MethodOnline || m == models.MethodBankTransfer
	})
}
