package worker

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

const (
	rollupQueue    = "queue:day-rollup"
	totalsCacheTTL = 48 * time.Hour
)

// TotalsCacheKey is where the rollup for one user-day lives in Redis.
func TotalsCacheKey(userID uuid.UUID, date string) string {
	return fmt.Sprintf("day_totals:%s:%s", userID, date)
}

// mealSummer is the slice of the meal repository the rollup needs.
type mealSummer interface {
	SumByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DayTotals, error)
}

// Pool consumes day-rollup jobs: recompute a user's totals for one date,
// cache the result, and push it to any live websocket sessions. Jobs are
// enqueued on every meal write and recomputation is idempotent, so a
// replayed or duplicated job is harmless.
type Pool struct {
	redis       *redis.Client
	mealRepo    mealSummer
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, mealRepo mealSummer, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		mealRepo:    mealRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d rollup worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 30*time.Second, rollupQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.RollupJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Collapse duplicate jobs for the same user-day
		lockKey := fmt.Sprintf("job_lock:rollup:%s:%s", job.UserID, job.Date)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 30*time.Second).Result()
		if err != nil || !locked {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			log.Printf("Worker %d: rollup for %s on %s failed: %v", id, job.UserID, job.Date, err)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// Process recomputes and caches the totals for one job. Exported so a
// cold cache can be refilled synchronously as well.
func (p *Pool) Process(ctx context.Context, job models.RollupJob) error {
	date, err := time.ParseInLocation("2006-01-02", job.Date, time.Local)
	if err != nil {
		return fmt.Errorf("invalid job date %q: %w", job.Date, err)
	}

	totals, err := p.mealRepo.SumByUserAndDate(ctx, job.UserID, date)
	if err != nil {
		return fmt.Errorf("sum meals: %w", err)
	}
	totals.UserID = job.UserID
	totals.Date = job.Date

	payload, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("marshal totals: %w", err)
	}
	if err := p.redis.Set(ctx, TotalsCacheKey(job.UserID, job.Date), payload, totalsCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache totals: %w", err)
	}

	p.publishUpdate(ctx, job.UserID, models.WSMessage{Type: "totals_updated", Payload: totals})
	return nil
}

func (p *Pool) publishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	channel := fmt.Sprintf("user_updates:%s", userID)
	if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("Worker: publish update failed for %s: %v", userID, err)
	}
}
