package services

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"nutrichat-backend/internal/repository"
)

const (
	reminderSentKeyPrefix = "meal_reminder_sent:"
	reminderHour          = 19 // local evening, after the dinner window opens
	reminderPollInterval  = 30 * time.Minute
)

// ReminderScheduler emails users who have not logged a meal all day.
// Redis keys with a midnight expiry guarantee at most one reminder per
// user per day.
type ReminderScheduler struct {
	userRepo *repository.UserRepo
	email    *EmailService
	redis    *redis.Client
	stopChan chan struct{}
}

func NewReminderScheduler(userRepo *repository.UserRepo, email *EmailService, redisClient *redis.Client) *ReminderScheduler {
	return &ReminderScheduler{
		userRepo: userRepo,
		email:    email,
		redis:    redisClient,
		stopChan: make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}
	go s.loop()
	log.Printf("Meal reminder scheduler started")
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop() {
	ticker := time.NewTicker(reminderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			now := time.Now()
			if now.Hour() < reminderHour {
				continue
			}
			s.sendReminders(context.Background(), now)
		}
	}
}

func (s *ReminderScheduler) sendReminders(ctx context.Context, now time.Time) {
	users, err := s.userRepo.ListInactiveToday(ctx)
	if err != nil {
		log.Printf("meal reminders: failed to list recipients: %v", err)
		return
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	for _, user := range users {
		key := reminderSentKeyPrefix + user.ID.String()
		set, err := s.redis.SetNX(ctx, key, "1", time.Until(midnight)).Result()
		if err != nil || !set {
			continue // already reminded today
		}

		if err := s.email.SendMealReminderEmail(user.Email, user.FullName); err != nil {
			log.Printf("meal reminders: failed to send to %s: %v", user.Email, err)
		}
	}
}
