package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// CourseRepository implements course.Repository.
type CourseRepository struct {
	q Querier
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(q Querier) *CourseRepository {
	return &CourseRepository{q: q}
}

const courseColumns = `
	id, creator, content_authority, content_locator, version, lesson_count,
	difficulty, xp_per_lesson, track_id, track_level, prerequisite,
	completion_bonus_xp, creator_reward_xp, min_completions_for_reward,
	total_completions, total_enrollments, is_active, created_at, updated_at
`

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	const query = `
		INSERT INTO courses (
			id, creator, content_authority, content_locator, version,
			lesson_count, difficulty, xp_per_lesson, track_id, track_level,
			prerequisite, completion_bonus_xp, creator_reward_xp,
			min_completions_for_reward, total_completions, total_enrollments,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.q.Exec(ctx, query,
		c.ID.String(), c.Creator.String(), c.ContentAuthority.String(), c.ContentLocator[:],
		int32(c.Version), int16(c.LessonCount), int16(c.Difficulty), int64(c.XPPerLesson),
		int32(c.TrackID), int16(c.TrackLevel), nullableCourseID(c.Prerequisite),
		int64(c.CompletionBonusXP), int64(c.CreatorRewardXP), int32(c.MinCompletionsForReward),
		int64(c.TotalCompletions), int64(c.TotalEnrollments), c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCourseAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID returns a course by its slug.
func (r *CourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	c, err := scanCourse(r.q.QueryRow(ctx, query, id.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update persists course mutations.
func (r *CourseRepository) Update(ctx context.Context, c *course.Course) error {
	const query = `
		UPDATE courses SET
			content_authority = $2, content_locator = $3, version = $4,
			completion_bonus_xp = $5, creator_reward_xp = $6,
			min_completions_for_reward = $7, total_completions = $8,
			total_enrollments = $9, is_active = $10, updated_at = $11
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		c.ID.String(), c.ContentAuthority.String(), c.ContentLocator[:], int32(c.Version),
		int64(c.CompletionBonusXP), int64(c.CreatorRewardXP), int32(c.MinCompletionsForReward),
		int64(c.TotalCompletions), int64(c.TotalEnrollments), c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}
	return nil
}

// List returns catalog entries matching the options.
func (r *CourseRepository) List(ctx context.Context, opts course.ListOptions) ([]*course.Course, error) {
	query, args := buildCourseFilter(`SELECT `+courseColumns+` FROM courses`, opts)
	query += ` ORDER BY id`
	if opts.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(opts.Limit)
	}
	if opts.Offset > 0 {
		query += ` OFFSET ` + strconv.Itoa(opts.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*course.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Exists checks whether a course exists.
func (r *CourseRepository) Exists(ctx context.Context, id shared.CourseID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`,
		id.String(),
	).Scan(&exists)
	return exists, err
}

// Count returns the number of courses matching the options.
func (r *CourseRepository) Count(ctx context.Context, opts course.ListOptions) (int, error) {
	query, args := buildCourseFilter(`SELECT COUNT(*) FROM courses`, opts)
	var n int
	err := r.q.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func buildCourseFilter(base string, opts course.ListOptions) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if opts.OnlyActive {
		conds = append(conds, "is_active")
	}
	if opts.TrackID != nil {
		args = append(args, int32(*opts.TrackID))
		conds = append(conds, "track_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		base += " WHERE " + strings.Join(conds, " AND ")
	}
	return base, args
}

func scanCourse(row rowScanner) (*course.Course, error) {
	var (
		c           course.Course
		id          string
		creator     string
		authority   string
		locator     []byte
		version     int32
		lessons     int16
		difficulty  int16
		xpPerLesson int64
		trackID     int32
		trackLevel  int16
		prereq      *string
		bonus       int64
		creatorXP   int64
		minComp     int32
		completions int64
		enrollments int64
	)
	err := row.Scan(
		&id, &creator, &authority, &locator, &version, &lessons,
		&difficulty, &xpPerLesson, &trackID, &trackLevel, &prereq,
		&bonus, &creatorXP, &minComp, &completions, &enrollments,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = shared.CourseID(id)
	c.Creator = shared.LearnerID(creator)
	c.ContentAuthority = shared.LearnerID(authority)
	copy(c.ContentLocator[:], locator)
	c.Version = uint16(version)
	c.LessonCount = uint8(lessons)
	c.Difficulty = shared.Difficulty(difficulty)
	c.XPPerLesson = uint32(xpPerLesson)
	c.TrackID = uint16(trackID)
	c.TrackLevel = shared.TrackLevel(trackLevel)
	if prereq != nil {
		c.Prerequisite = shared.CourseID(*prereq)
	}
	c.CompletionBonusXP = uint32(bonus)
	c.CreatorRewardXP = uint32(creatorXP)
	c.MinCompletionsForReward = uint16(minComp)
	c.TotalCompletions = uint32(completions)
	c.TotalEnrollments = uint32(enrollments)
	return &c, nil
}

// nullableCourseID maps an empty CourseID to SQL NULL.
func nullableCourseID(id shared.CourseID) *string {
	if id.IsEmpty() {
		return nil
	}
	s := id.String()
	return &s
}
