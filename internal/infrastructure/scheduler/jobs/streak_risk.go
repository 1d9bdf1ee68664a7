// Package jobs contains the ledger's scheduled background jobs.
package jobs

import (
	"context"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/pkg/logger"
	"github.com/academy-hub/academy-ledger/pkg/timeutil"
)

// StreakNotifier delivers a streak warning to a learner. Implementations
// push through whatever channel the platform wires up (email, in-app).
type StreakNotifier interface {
	NotifyStreakAtRisk(ctx context.Context, profile *learner.Profile, hoursLeft int64) error
}

// StreakRiskJob warns learners whose streak will break at the next UTC day
// rollover unless they complete a lesson, and whose freeze balance cannot
// cover the gap. Runs in the evening so the warning lands while the day
// can still be saved.
type StreakRiskJob struct {
	learners learner.Repository
	notifier StreakNotifier
	log      *logger.Logger
	batch    int
	clock    func() time.Time
}

// NewStreakRiskJob creates the streak risk sweep.
func NewStreakRiskJob(learners learner.Repository, notifier StreakNotifier, log *logger.Logger) *StreakRiskJob {
	if log == nil {
		log = logger.Default()
	}
	return &StreakRiskJob{
		learners: learners,
		notifier: notifier,
		log:      log.With(logger.Component("streak_risk_job")),
		batch:    500,
		clock:    time.Now,
	}
}

// Name implements scheduler.Job.
func (j *StreakRiskJob) Name() string { return "streak_risk_sweep" }

// Run implements scheduler.Job.
func (j *StreakRiskJob) Run(ctx context.Context) error {
	now := j.clock().UTC().Unix()

	profiles, err := j.learners.FindStreaksAtRisk(ctx, now, j.batch)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return nil
	}

	hoursLeft := timeutil.SecondsUntilDayEnd(now) / 3600
	notified := 0
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.notifier.NotifyStreakAtRisk(ctx, p, hoursLeft); err != nil {
			j.log.Error("streak warning failed",
				logger.LearnerID(p.Owner.String()),
				logger.Err(err),
			)
			continue
		}
		notified++
	}

	j.log.Info("streak risk sweep finished",
		logger.Int("at_risk", len(profiles)),
		logger.Int("notified", notified),
	)
	return nil
}

// LogNotifier is the default StreakNotifier: it only records the warning.
// Used until a real delivery channel is configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log.With(logger.Component("streak_notifier"))}
}

// NotifyStreakAtRisk implements StreakNotifier.
func (n *LogNotifier) NotifyStreakAtRisk(_ context.Context, profile *learner.Profile, hoursLeft int64) error {
	n.log.Warn("streak at risk",
		logger.LearnerID(profile.Owner.String()),
		logger.Streak(profile.CurrentStreak),
		logger.Int64("hours_left", hoursLeft),
	)
	return nil
}
