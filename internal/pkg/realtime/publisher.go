package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LukasBrandt/Loopline/app/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Publisher delivers events to a user's realtime channel.
type Publisher interface {
	Publish(ctx context.Context, userID uint, event string, payload interface{}) error
}

// Envelope is the JSON frame written to a user channel.
type Envelope struct {
	EventID   string      `json:"event_id"`
	Event     string      `json:"event"`
	UserID    uint        `json:"user_id"`
	Payload   interface{} `json:"payload,omitempty"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// UserChannel returns the pub/sub channel name for a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d:events", userID)
}

type redisPublisher struct {
	db     *gorm.DB
	client *redis.Client
}

// NewPublisher creates a publisher that stores a notification row and pushes
// the envelope onto the user's Redis channel.
func NewPublisher(db *gorm.DB, client *redis.Client) Publisher {
	return &redisPublisher{db: db, client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, userID uint, event string, payload interface{}) error {
	env := Envelope{
		EventID:   uuid.NewString(),
		Event:     event,
		UserID:    userID,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}

	// The row makes the notification durable for clients that are offline
	// when the channel message goes out.
	if err := models.CreateNotification(p.db, userID, event, string(frame)); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if err := p.client.Publish(ctx, UserChannel(userID), frame).Err(); err != nil {
		return fmt.Errorf("publish to user channel: %w", err)
	}
	return nil
}
