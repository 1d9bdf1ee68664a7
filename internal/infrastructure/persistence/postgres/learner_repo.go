package postgres

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// LearnerRepository implements learner.Repository. The 256-slot achievement
// bitmap round-trips through a 32-byte BYTEA column.
type LearnerRepository struct {
	q Querier
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(q Querier) *LearnerRepository {
	return &LearnerRepository{q: q}
}

const learnerColumns = `
	owner, current_streak, longest_streak, last_activity_date, streak_freezes,
	claimed_achievements, xp_earned_today, last_xp_day, referral_count,
	has_referrer, referrer, created_at, updated_at
`

// Create persists a new profile.
func (r *LearnerRepository) Create(ctx context.Context, p *learner.Profile) error {
	const query = `
		INSERT INTO learner_profiles (
			owner, current_streak, longest_streak, last_activity_date,
			streak_freezes, claimed_achievements, xp_earned_today, last_xp_day,
			referral_count, has_referrer, referrer, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.q.Exec(ctx, query,
		p.Owner.String(), int32(p.CurrentStreak), int32(p.LongestStreak), p.LastActivityDate,
		int16(p.StreakFreezes), p.ClaimedAchievements.Bytes(), int64(p.XPEarnedToday), p.LastXPDay,
		int32(p.ReferralCount), p.HasReferrer, nullableID(p.Referrer), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLearnerAlreadyInitialized
		}
		return err
	}
	return nil
}

// GetByOwner returns the profile for a learner.
func (r *LearnerRepository) GetByOwner(ctx context.Context, owner shared.LearnerID) (*learner.Profile, error) {
	query := `SELECT ` + learnerColumns + ` FROM learner_profiles WHERE owner = $1`

	p, err := scanProfile(r.q.QueryRow(ctx, query, owner.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update persists profile mutations.
func (r *LearnerRepository) Update(ctx context.Context, p *learner.Profile) error {
	const query = `
		UPDATE learner_profiles SET
			current_streak = $2, longest_streak = $3, last_activity_date = $4,
			streak_freezes = $5, claimed_achievements = $6, xp_earned_today = $7,
			last_xp_day = $8, referral_count = $9, has_referrer = $10,
			referrer = $11, updated_at = $12
		WHERE owner = $1
	`
	tag, err := r.q.Exec(ctx, query,
		p.Owner.String(), int32(p.CurrentStreak), int32(p.LongestStreak), p.LastActivityDate,
		int16(p.StreakFreezes), p.ClaimedAchievements.Bytes(), int64(p.XPEarnedToday), p.LastXPDay,
		int32(p.ReferralCount), p.HasReferrer, nullableID(p.Referrer), p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLearnerNotFound
	}
	return nil
}

// Exists checks whether a profile exists for the learner.
func (r *LearnerRepository) Exists(ctx context.Context, owner shared.LearnerID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM learner_profiles WHERE owner = $1)`,
		owner.String(),
	).Scan(&exists)
	return exists, err
}

// FindStreaksAtRisk returns profiles with a live streak whose last activity
// was before today and whose freeze balance cannot cover the gap so far.
func (r *LearnerRepository) FindStreaksAtRisk(ctx context.Context, asOf int64, limit int) ([]*learner.Profile, error) {
	dayStart := (asOf / 86400) * 86400
	query := `SELECT ` + learnerColumns + `
		FROM learner_profiles
		WHERE current_streak > 0
			AND last_activity_date < $1
			AND (($1 - last_activity_date) / 86400) > streak_freezes
		ORDER BY current_streak DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, dayStart, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*learner.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the total number of profiles.
func (r *LearnerRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM learner_profiles`).Scan(&n)
	return n, err
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*learner.Profile, error) {
	var (
		p          learner.Profile
		owner      string
		streak     int32
		longest    int32
		freezes    int16
		bitmap     []byte
		earned     int64
		referrals  int32
		referrerID *string
	)
	err := row.Scan(
		&owner, &streak, &longest, &p.LastActivityDate, &freezes,
		&bitmap, &earned, &p.LastXPDay, &referrals,
		&p.HasReferrer, &referrerID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Owner = shared.LearnerID(owner)
	p.CurrentStreak = uint16(streak)
	p.LongestStreak = uint16(longest)
	p.StreakFreezes = uint8(freezes)
	p.ClaimedAchievements = shared.BitSetFromBytes(bitmap, shared.BitSetCapacity)
	p.XPEarnedToday = uint32(earned)
	p.ReferralCount = uint16(referrals)
	if referrerID != nil {
		p.Referrer = shared.LearnerID(*referrerID)
	}
	return &p, nil
}

// nullableID maps an empty LearnerID to SQL NULL.
func nullableID(id shared.LearnerID) *string {
	if id.IsEmpty() {
		return nil
	}
	s := id.String()
	return &s
}
