package postgres

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// EnrollmentRepository implements enrollment.Repository. The lesson bitmap
// round-trips through a 32-byte BYTEA column with the 128-slot capacity.
type EnrollmentRepository struct {
	q Querier
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(q Querier) *EnrollmentRepository {
	return &EnrollmentRepository{q: q}
}

const enrollmentColumns = `
	learner, course_id, enrolled_version, enrolled_at, completed_at,
	completed_lessons, credential_asset, bonus_claimed, created_at, updated_at
`

// Create persists a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	const query = `
		INSERT INTO enrollments (
			learner, course_id, enrolled_version, enrolled_at, completed_at,
			completed_lessons, credential_asset, bonus_claimed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.Exec(ctx, query,
		e.Learner.String(), e.Course.String(), int32(e.EnrolledVersion), e.EnrolledAt,
		e.CompletedAt, e.CompletedLessons.Bytes(), e.CredentialAsset, e.BonusClaimed,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		return err
	}
	return nil
}

// Get returns the enrollment for a (learner, course) pair.
func (r *EnrollmentRepository) Get(ctx context.Context, l shared.LearnerID, c shared.CourseID) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE learner = $1 AND course_id = $2`

	e, err := scanEnrollment(r.q.QueryRow(ctx, query, l.String(), c.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotEnrolled
		}
		return nil, err
	}
	return e, nil
}

// Update persists enrollment mutations.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	const query = `
		UPDATE enrollments SET
			completed_at = $3, completed_lessons = $4, credential_asset = $5,
			bonus_claimed = $6, updated_at = $7
		WHERE learner = $1 AND course_id = $2
	`
	tag, err := r.q.Exec(ctx, query,
		e.Learner.String(), e.Course.String(), e.CompletedAt,
		e.CompletedLessons.Bytes(), e.CredentialAsset, e.BonusClaimed, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotEnrolled
	}
	return nil
}

// Delete removes the enrollment record.
func (r *EnrollmentRepository) Delete(ctx context.Context, l shared.LearnerID, c shared.CourseID) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM enrollments WHERE learner = $1 AND course_id = $2`,
		l.String(), c.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotEnrolled
	}
	return nil
}

// ListByLearner returns all enrollments for a learner.
func (r *EnrollmentRepository) ListByLearner(ctx context.Context, l shared.LearnerID) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE learner = $1 ORDER BY course_id`

	rows, err := r.q.Query(ctx, query, l.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Exists checks whether the (learner, course) pair is enrolled.
func (r *EnrollmentRepository) Exists(ctx context.Context, l shared.LearnerID, c shared.CourseID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE learner = $1 AND course_id = $2)`,
		l.String(), c.String(),
	).Scan(&exists)
	return exists, err
}

// CountByCourse returns the number of open enrollments for a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, c shared.CourseID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`,
		c.String(),
	).Scan(&n)
	return n, err
}

func scanEnrollment(row rowScanner) (*enrollment.Enrollment, error) {
	var (
		e       enrollment.Enrollment
		learner string
		courID  string
		version int32
		bitmap  []byte
	)
	err := row.Scan(
		&learner, &courID, &version, &e.EnrolledAt, &e.CompletedAt,
		&bitmap, &e.CredentialAsset, &e.BonusClaimed, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Learner = shared.LearnerID(learner)
	e.Course = shared.CourseID(courID)
	e.EnrolledVersion = uint16(version)
	e.CompletedLessons = shared.BitSetFromBytes(bitmap, shared.LessonBitSetCapacity)
	return &e, nil
}
