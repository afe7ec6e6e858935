package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"nutrichat-backend/internal/models"
)

const rollupQueueName = "queue:day-rollup"

// RollupNotifier is the one place meal writes fan out from: every path
// that mutates meals (chat pipeline, REST handlers, planned-eaten
// transitions) reports here so the cached day totals get recomputed and
// live websocket sessions hear about the change. A nil client turns
// every call into a no-op.
type RollupNotifier struct {
	redis *redis.Client
}

func NewRollupNotifier(redisClient *redis.Client) *RollupNotifier {
	return &RollupNotifier{redis: redisClient}
}

// MealsChanged schedules the day-totals recompute for one user-day and
// notifies any live websocket sessions that meals changed.
func (n *RollupNotifier) MealsChanged(ctx context.Context, userID uuid.UUID, date time.Time) {
	if n == nil || n.redis == nil {
		return
	}

	job := models.RollupJob{
		ID:     uuid.New(),
		UserID: userID,
		Date:   date.Format("2006-01-02"),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		log.Printf("rollup: marshal job failed: %v", err)
		return
	}
	if err := n.redis.LPush(ctx, rollupQueueName, payload).Err(); err != nil {
		log.Printf("rollup: enqueue job failed for %s: %v", userID, err)
	}

	n.PublishUpdate(ctx, userID, models.WSMessage{Type: "meal_logged", Payload: map[string]string{"date": job.Date}})
}

// PublishUpdate pushes one message to the user's websocket channel.
func (n *RollupNotifier) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if n == nil || n.redis == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("rollup: marshal ws message failed: %v", err)
		return
	}
	channel := fmt.Sprintf("user_updates:%s", userID)
	if err := n.redis.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("rollup: publish update failed for %s: %v", userID, err)
	}
}
