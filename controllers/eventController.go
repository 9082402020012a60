package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/gin-gonic/gin"
)

const sseKeepAlive = 25 * time.Second

// eventOwner returns the member an event concerns, or "" when it carries no
// member.
func eventOwner(e events.Event) string {
	switch ev := e.(type) {
	case events.OrderCreated:
		return ev.FranchiseMemberID
	case events.OrderStatusChanged:
		return ev.FranchiseMemberID
	case events.PointsEarned:
		return ev.AccountID
	case events.PointsRedeemed:
		return ev.AccountID
	}
	return ""
}

// StreamEvents pushes change notifications as server-sent events. Members
// see their own changes; admins see everything.
func (h *Handler) StreamEvents(ctx *gin.Context) {
	if h.Bus == nil {
		sendErrorResponse(ctx, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}
	memberID := middlewares.MemberID(ctx)
	admin := middlewares.IsAdmin(ctx)

	ch, cancel := h.Bus.Subscribe(64)
	defer cancel()

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.SSEvent("ready", gin.H{"member": memberID})
	ctx.Writer.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	done := ctx.Request.Context().Done()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case <-ticker.C:
			ctx.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case e, ok := <-ch:
			if !ok {
				return false
			}
			if admin || eventOwner(e) == memberID {
				ctx.SSEvent(e.EventType(), events.NewEnvelope(e))
			}
			return true
		}
	})
}
