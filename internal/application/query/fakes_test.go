package query

import (
	"context"
	"sort"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// Read-only map-backed repositories. Queries never write, so the mutating
// methods are inert.

type stubLearners map[shared.LearnerID]*learner.Profile

func (s stubLearners) Create(context.Context, *learner.Profile) error { return nil }
func (s stubLearners) Update(context.Context, *learner.Profile) error { return nil }

func (s stubLearners) GetByOwner(_ context.Context, owner shared.LearnerID) (*learner.Profile, error) {
	p, ok := s[owner]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return p, nil
}

func (s stubLearners) Exists(_ context.Context, owner shared.LearnerID) (bool, error) {
	_, ok := s[owner]
	return ok, nil
}

func (s stubLearners) FindStreaksAtRisk(context.Context, int64, int) ([]*learner.Profile, error) {
	return nil, nil
}

func (s stubLearners) Count(context.Context) (int, error) { return len(s), nil }

type stubCourses map[shared.CourseID]*course.Course

func (s stubCourses) Create(context.Context, *course.Course) error { return nil }
func (s stubCourses) Update(context.Context, *course.Course) error { return nil }

func (s stubCourses) GetByID(_ context.Context, id shared.CourseID) (*course.Course, error) {
	c, ok := s[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return c, nil
}

func (s stubCourses) List(_ context.Context, opts course.ListOptions) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range s {
		if opts.OnlyActive && !c.IsActive {
			continue
		}
		if opts.TrackID != nil && c.TrackID != *opts.TrackID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s stubCourses) Exists(_ context.Context, id shared.CourseID) (bool, error) {
	_, ok := s[id]
	return ok, nil
}

func (s stubCourses) Count(ctx context.Context, opts course.ListOptions) (int, error) {
	list, err := s.List(ctx, opts)
	return len(list), err
}

type stubEnrollments map[string]*enrollment.Enrollment

func enrollKey(l shared.LearnerID, c shared.CourseID) string {
	return l.String() + "/" + c.String()
}

func (s stubEnrollments) Create(context.Context, *enrollment.Enrollment) error { return nil }
func (s stubEnrollments) Update(context.Context, *enrollment.Enrollment) error { return nil }

func (s stubEnrollments) Get(_ context.Context, l shared.LearnerID, c shared.CourseID) (*enrollment.Enrollment, error) {
	e, ok := s[enrollKey(l, c)]
	if !ok {
		return nil, shared.ErrNotEnrolled
	}
	return e, nil
}

func (s stubEnrollments) Delete(_ context.Context, l shared.LearnerID, c shared.CourseID) error {
	delete(s, enrollKey(l, c))
	return nil
}

func (s stubEnrollments) ListByLearner(_ context.Context, l shared.LearnerID) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range s {
		if e.Learner == l {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Course < out[j].Course })
	return out, nil
}

func (s stubEnrollments) Exists(_ context.Context, l shared.LearnerID, c shared.CourseID) (bool, error) {
	_, ok := s[enrollKey(l, c)]
	return ok, nil
}

func (s stubEnrollments) CountByCourse(_ context.Context, c shared.CourseID) (int, error) {
	n := 0
	for _, e := range s {
		if e.Course == c {
			n++
		}
	}
	return n, nil
}

type stubPlatform struct{ cfg *platform.Config }

func (s stubPlatform) Create(context.Context, *platform.Config) error { return nil }
func (s stubPlatform) Update(context.Context, *platform.Config) error { return nil }

func (s stubPlatform) Get(context.Context) (*platform.Config, error) {
	if s.cfg == nil {
		return nil, shared.ErrPlatformNotInitialized
	}
	return s.cfg, nil
}
