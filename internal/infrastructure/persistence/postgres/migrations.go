package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// Bitmaps (lesson completion, claimed achievements) are stored as 32-byte
// BYTEA columns in the BitSet256 little-endian layout.
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded ledger migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if needed.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the applied migration versions.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Status returns every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}
	return result, nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_platform_config",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_learner_profiles",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_courses",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_enrollments",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

const migration001Up = `
CREATE TABLE platform_config (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	authority TEXT NOT NULL,
	backend_signer TEXT NOT NULL,
	current_season INTEGER NOT NULL DEFAULT 0,
	current_mint TEXT NOT NULL DEFAULT '',
	season_closed BOOLEAN NOT NULL DEFAULT TRUE,
	season_started_at BIGINT NOT NULL DEFAULT 0,
	max_daily_xp BIGINT NOT NULL,
	max_achievement_xp BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

const migration001Down = `DROP TABLE IF EXISTS platform_config;`

const migration002Up = `
CREATE TABLE learner_profiles (
	owner UUID PRIMARY KEY,
	current_streak INTEGER NOT NULL DEFAULT 0,
	longest_streak INTEGER NOT NULL DEFAULT 0,
	last_activity_date BIGINT NOT NULL DEFAULT 0,
	streak_freezes SMALLINT NOT NULL DEFAULT 0,
	claimed_achievements BYTEA NOT NULL,
	xp_earned_today BIGINT NOT NULL DEFAULT 0,
	last_xp_day BIGINT NOT NULL DEFAULT 0,
	referral_count INTEGER NOT NULL DEFAULT 0,
	has_referrer BOOLEAN NOT NULL DEFAULT FALSE,
	referrer UUID,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX idx_learner_profiles_last_activity ON learner_profiles (last_activity_date)
	WHERE current_streak > 0;
`

const migration002Down = `DROP TABLE IF EXISTS learner_profiles;`

const migration003Up = `
CREATE TABLE courses (
	id TEXT PRIMARY KEY CHECK (char_length(id) <= 32),
	creator UUID NOT NULL,
	content_authority UUID NOT NULL,
	content_locator BYTEA NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	lesson_count SMALLINT NOT NULL CHECK (lesson_count BETWEEN 1 AND 128),
	difficulty SMALLINT NOT NULL CHECK (difficulty BETWEEN 1 AND 3),
	xp_per_lesson BIGINT NOT NULL DEFAULT 0,
	track_id INTEGER NOT NULL DEFAULT 0,
	track_level SMALLINT NOT NULL CHECK (track_level BETWEEN 1 AND 3),
	prerequisite TEXT,
	completion_bonus_xp BIGINT NOT NULL DEFAULT 0,
	creator_reward_xp BIGINT NOT NULL DEFAULT 0,
	min_completions_for_reward INTEGER NOT NULL DEFAULT 0,
	total_completions BIGINT NOT NULL DEFAULT 0,
	total_enrollments BIGINT NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX idx_courses_track ON courses (track_id, track_level);
CREATE INDEX idx_courses_active ON courses (is_active) WHERE is_active;
`

const migration003Down = `DROP TABLE IF EXISTS courses;`

const migration004Up = `
CREATE TABLE enrollments (
	learner UUID NOT NULL,
	course_id TEXT NOT NULL REFERENCES courses (id),
	enrolled_version INTEGER NOT NULL,
	enrolled_at BIGINT NOT NULL,
	completed_at BIGINT,
	completed_lessons BYTEA NOT NULL,
	credential_asset TEXT NOT NULL DEFAULT '',
	bonus_claimed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (learner, course_id)
);

CREATE INDEX idx_enrollments_course ON enrollments (course_id);
`

const migration004Down = `DROP TABLE IF EXISTS enrollments;`
