package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-ledger/internal/application/command"
)

// Store implements command.Store: one SQL transaction per command, with all
// repositories bound to that transaction.
type Store struct {
	conn *Connection
}

// NewStore creates a new transactional store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// WithinTx runs fn inside a single read-write transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos command.Repositories) error) error {
	return s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		repos := command.Repositories{
			Platform:    NewPlatformRepository(tx),
			Learners:    NewLearnerRepository(tx),
			Courses:     NewCourseRepository(tx),
			Enrollments: NewEnrollmentRepository(tx),
		}
		return fn(ctx, repos)
	})
}

// Repositories returns pool-backed repositories for the read side, outside
// any transaction.
func (s *Store) Repositories() command.Repositories {
	return command.Repositories{
		Platform:    NewPlatformRepository(s.conn.Pool()),
		Learners:    NewLearnerRepository(s.conn.Pool()),
		Courses:     NewCourseRepository(s.conn.Pool()),
		Enrollments: NewEnrollmentRepository(s.conn.Pool()),
	}
}
