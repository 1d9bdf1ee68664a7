// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/platform"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATOMIC STORE
// Every command executes as one atomic unit: either every read, validation,
// and mutation commits, or none do. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repositories bundles the per-aggregate repositories bound to one
// transaction.
type Repositories struct {
	Platform    platform.Repository
	Learners    learner.Repository
	Courses     course.Repository
	Enrollments enrollment.Repository
}

// Store provides transactional access to the ledger state.
type Store interface {
	// WithinTx runs fn inside a single transaction. Repository calls made
	// through the passed Repositories commit together or roll back together;
	// fn returning an error aborts everything.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
