package counter

import (
	"context"
	"strconv"
	"strings"

	"github.com/LukasBrandt/Loopline/internal/pkg/cache"
)

const (
	webhookReceivedKey  = "webhook:counters:received"
	webhookProcessedKey = "webhook:counters:processed"
	webhookFailedKey    = "webhook:counters:failed"
)

// AddWebhookReceived increments the received counter for an event type in Redis
func AddWebhookReceived(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookReceivedKey, eventType, 1).Err()
}

// AddWebhookProcessed increments the processed counter for an event type in Redis
func AddWebhookProcessed(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookProcessedKey, eventType, 1).Err()
}

// AddWebhookFailed increments the failure counter for an event type in Redis
func AddWebhookFailed(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookFailedKey, eventType, 1).Err()
}

// WebhookTotals holds the aggregated delivery counters per event type.
type WebhookTotals struct {
	Received  map[string]int64 `json:"received"`
	Processed map[string]int64 `json:"processed"`
	Failed    map[string]int64 `json:"failed"`
}

// ReadWebhookTotals reads all delivery counters from Redis.
func ReadWebhookTotals() (WebhookTotals, error) {
	totals := WebhookTotals{
		Received:  map[string]int64{},
		Processed: map[string]int64{},
		Failed:    map[string]int64{},
	}

	for key, dst := range map[string]map[string]int64{
		webhookReceivedKey:  totals.Received,
		webhookProcessedKey: totals.Processed,
		webhookFailedKey:    totals.Failed,
	} {
		if err := readHash(key, dst); err != nil {
			return WebhookTotals{}, err
		}
	}
	return totals, nil
}

func readHash(key string, dst map[string]int64) error {
	ctx := context.Background()
	values, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		// Missing key means nothing was counted yet
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}
	for field, raw := range values {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		dst[field] = n
	}
	return nil
}
