package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/LukasBrandt/Loopline/app/models"
	"github.com/LukasBrandt/Loopline/app/repository"
	"github.com/LukasBrandt/Loopline/internal/pkg/metrics/counter"
	"github.com/LukasBrandt/Loopline/internal/pkg/subscription"
)

const webhookProcessTimeout = 15 * time.Second

// WebhookController receives signed subscription lifecycle events from the
// payment provider and feeds them into the subscription service.
//
// SECURITY: signature verification is the only authentication on this route.
type WebhookController struct {
	secret string
	events repository.WebhookEventRepository
	svc    *subscription.Service
}

// NewWebhookController wires the webhook endpoint. An empty secret leaves the
// endpoint unconfigured; it then answers 503 without touching the payload.
func NewWebhookController(secret string, events repository.WebhookEventRepository, svc *subscription.Service) *WebhookController {
	return &WebhookController{
		secret: strings.TrimSpace(secret),
		events: events,
		svc:    svc,
	}
}

// HandleStripeWebhook processes one provider delivery. The 204 acknowledgment
// is set right after the event is verified and resolved to a user, before the
// role/database reconciliation runs: provider-facing latency stays decoupled
// from internal work, and post-ack failures are visible only in the logs and
// the webhook event journal. The provider's retry policy is the only retry.
func (h *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	if h.secret == "" {
		fiberlog.Errorw("[Webhook] provider credentials not configured")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "provider_not_configured"})
	}

	body := c.BodyRaw()
	if len(body) == 0 {
		fiberlog.Errorw("[Webhook] empty request body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty_body"})
	}

	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	if signature == "" {
		fiberlog.Errorw("[Webhook] missing signature header")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_signature"})
	}

	event, err := webhook.ConstructEventWithOptions(body, signature, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		fiberlog.Errorw("[Webhook] signature verification failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	if !subscription.IsHandledEventType(string(event.Type)) {
		fiberlog.Warnw("[Webhook] unhandled event type", "type", string(event.Type), "event_id", event.ID)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unhandled_event_type"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
	defer cancel()

	created, stored, err := h.events.CreateIfNotExists(&models.WebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(body),
	})
	if err != nil {
		fiberlog.Errorw("[Webhook] event journal write failed", "event_id", event.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		fiberlog.Infow("[Webhook] duplicate delivery ignored", "event_id", event.ID)
		return c.SendStatus(fiber.StatusNoContent)
	}
	_ = counter.AddWebhookReceived(string(event.Type))

	typed, err := subscription.DecodeEvent(&event)
	if err != nil {
		fiberlog.Errorw("[Webhook] payload decode failed", "event_id", event.ID, "error", err)
		h.markProcessed(stored.ID, string(event.Type), err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	profile, found, err := h.svc.ResolveProfile(ctx, typed.CustomerID())
	if err != nil {
		fiberlog.Errorw("[Webhook] profile resolution failed", "event_id", event.ID, "error", err)
		h.markProcessed(stored.ID, string(event.Type), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "profile_lookup_failed"})
	}
	if !found {
		fiberlog.Warnw("[Webhook] no profile for billing customer",
			"event_id", event.ID, "customer_id", typed.CustomerID())
		h.markProcessed(stored.ID, string(event.Type), errors.New("no profile for billing customer"))
		return c.SendStatus(fiber.StatusNoContent)
	}

	// Acknowledge before the transition runs.
	c.Status(fiber.StatusNoContent)

	var procErr error
	switch ev := typed.(type) {
	case subscription.CreatedEvent:
		procErr = h.svc.HandleCreated(ctx, profile.UserID, ev)
	case subscription.UpdatedEvent:
		procErr = h.svc.HandleUpdated(ctx, profile.UserID, ev)
	case subscription.DeletedEvent:
		procErr = h.svc.HandleDeleted(ctx, profile.UserID, ev)
	}
	if procErr != nil {
		fiberlog.Errorw("[Webhook] reconciliation failed",
			"event_id", event.ID, "type", string(event.Type), "user_id", profile.UserID, "error", procErr)
	}
	h.markProcessed(stored.ID, string(event.Type), procErr)

	return nil
}

func (h *WebhookController) markProcessed(eventID uint, eventType string, procErr error) {
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
		_ = counter.AddWebhookFailed(eventType)
	} else {
		_ = counter.AddWebhookProcessed(eventType)
	}
	if err := h.events.MarkProcessed(eventID, msg); err != nil {
		fiberlog.Errorw("[Webhook] marking event processed failed", "webhook_event_id", eventID, "error", err)
	}
}
