package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK LEADERBOARD
// Sorted set scored by current streak, kept fresh by subscribing to lesson
// completion events. Best effort: the ledger in postgres stays authoritative,
// this view just serves the ranking read cheaply.
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyStreakLeaderboard = "leaderboard:streaks"

	leaderboardOpTimeout = 2 * time.Second
)

// StreakRank is one leaderboard row.
type StreakRank struct {
	Rank      int    `json:"rank"`
	LearnerID string `json:"learner_id"`
	Streak    uint16 `json:"streak"`
}

// StreakLeaderboard maintains the streak ranking in a redis sorted set.
type StreakLeaderboard struct {
	client *redis.Client
	log    *logger.Logger
}

// NewStreakLeaderboard creates a leaderboard over the cache's redis client.
func NewStreakLeaderboard(cache *Cache, log *logger.Logger) *StreakLeaderboard {
	if log == nil {
		log = logger.Default()
	}
	return &StreakLeaderboard{
		client: cache.Client(),
		log:    log.With(logger.Component("streak_leaderboard")),
	}
}

// Record upserts a learner's streak score.
func (l *StreakLeaderboard) Record(ctx context.Context, learnerID string, streak uint16) error {
	if learnerID == "" {
		return fmt.Errorf("leaderboard: empty learner id")
	}
	err := l.client.ZAdd(ctx, keyStreakLeaderboard, redis.Z{
		Score:  float64(streak),
		Member: learnerID,
	}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard: record: %w", err)
	}
	return nil
}

// Remove drops a learner from the ranking.
func (l *StreakLeaderboard) Remove(ctx context.Context, learnerID string) error {
	if err := l.client.ZRem(ctx, keyStreakLeaderboard, learnerID).Err(); err != nil {
		return fmt.Errorf("leaderboard: remove: %w", err)
	}
	return nil
}

// Top returns the highest n streaks, ranked from 1.
func (l *StreakLeaderboard) Top(ctx context.Context, n int) ([]StreakRank, error) {
	if n <= 0 {
		n = 10
	}
	entries, err := l.client.ZRevRangeWithScores(ctx, keyStreakLeaderboard, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: top: %w", err)
	}

	ranks := make([]StreakRank, 0, len(entries))
	for i, e := range entries {
		member, ok := e.Member.(string)
		if !ok {
			continue
		}
		ranks = append(ranks, StreakRank{
			Rank:      i + 1,
			LearnerID: member,
			Streak:    uint16(e.Score),
		})
	}
	return ranks, nil
}

// HandleEvent keeps scores current from the event stream. Registered on the
// event bus for lesson completion and streak break events. Failures are
// logged, not propagated: a stale ranking must never fail a command.
func (l *StreakLeaderboard) HandleEvent(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), leaderboardOpTimeout)
	defer cancel()

	payload := event.Payload()
	learnerID, _ := payload["learner_id"].(string)
	if learnerID == "" {
		return nil
	}

	var err error
	switch event.EventType() {
	case shared.EventLessonCompleted:
		err = l.Record(ctx, learnerID, payloadUint16(payload["current_streak"]))
	case shared.EventStreakBroken:
		err = l.Record(ctx, learnerID, 0)
	default:
		return nil
	}

	if err != nil {
		l.log.Warn("leaderboard update failed",
			logger.LearnerID(learnerID),
			logger.Err(err))
	}
	return nil
}

// payloadUint16 reads a numeric payload field. Local events carry typed
// integers; events replayed from the redis bus arrive as JSON float64.
func payloadUint16(v interface{}) uint16 {
	switch n := v.(type) {
	case uint16:
		return n
	case int:
		if n < 0 {
			return 0
		}
		return uint16(n)
	case float64:
		if n < 0 {
			return 0
		}
		return uint16(n)
	default:
		return 0
	}
}
