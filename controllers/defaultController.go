package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func GetHome(ctx *gin.Context) {
	message := `Welcome to the Franchise Ordering API. Every route except this one and the payment notification needs a bearer token.

The following are the endpoints for this API:

CATALOG
- GET "/catalog" - List orderable items
- GET "/catalog/:itemId" - Get item by ID

CART
- GET "/cart?redeemPoints=" - Cart with its summary
- POST "/cart/items" - Add an item
- PATCH "/cart/items/:itemId" - Change quantity
- DELETE "/cart/items/:itemId" - Remove an item
- DELETE "/cart" - Clear the cart

ORDER
- POST "/checkout" - Place an order from the cart
- GET "/orders" - My orders
- GET "/orders/:orderId" - My order by ID
- POST "/orders/:orderId/cancel" - Cancel a pending or confirmed order
- POST "/orders/:orderId/payments" - Pay online or by bank transfer
- GET "/orders/:orderId/payments" - Payment attempts

LOYALTY
- GET "/loyalty" - Points balance
- GET "/loyalty/transactions" - Points history
- POST "/loyalty/redeem" - Redeem points

ADMIN
- GET "/admin/orders" - All orders
- GET "/admin/orders/:orderId" - Any order by ID
- PATCH "/admin/orders/:orderId/status" - Move an order along its lifecycle
- POST "/admin/payments/:transactionId/complete" - Confirm a payment
- POST "/admin/payments/:transactionId/fail" - Reject a payment
- POST "/admin/payments/expire" - Expire stale payments
- POST "/admin/loyalty/:memberId/adjust" - Add points
- POST "/admin/loyalty/:memberId/rebuild" - Rebuild a points balance from its history

EVENTS
- GET "/events" - Server-sent change notifications`

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}
