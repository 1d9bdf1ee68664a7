package command

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/academy-hub/academy-ledger/internal/domain/course"
	"github.com/academy-hub/academy-ledger/internal/domain/enrollment"
	"github.com/academy-hub/academy-ledger/internal/domain/issuing"
	"github.com/academy-hub/academy-ledger/internal/domain/learner"
	"github.com/academy-hub/academy-ledger/internal/domain/platform"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// In-memory fixtures for handler tests. One memStore per test, mutated only
// through WithinTx so the commit-or-rollback contract holds: fn errors leave
// the visible state untouched.

type memState struct {
	config      *platform.Config
	learners    map[shared.LearnerID]*learner.Profile
	courses     map[shared.CourseID]*course.Course
	enrollments map[string]*enrollment.Enrollment
}

func newMemState() *memState {
	return &memState{
		learners:    make(map[shared.LearnerID]*learner.Profile),
		courses:     make(map[shared.CourseID]*course.Course),
		enrollments: make(map[string]*enrollment.Enrollment),
	}
}

func enrollmentKey(l shared.LearnerID, c shared.CourseID) string {
	return l.String() + "/" + c.String()
}

func (s *memState) clone() *memState {
	out := newMemState()
	if s.config != nil {
		cfg := *s.config
		out.config = &cfg
	}
	for k, v := range s.learners {
		p := *v
		out.learners[k] = &p
	}
	for k, v := range s.courses {
		c := *v
		out.courses[k] = &c
	}
	for k, v := range s.enrollments {
		e := *v
		out.enrollments[k] = &e
	}
	return out
}

type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	repos := Repositories{
		Platform:    &memPlatformRepo{state: working},
		Learners:    &memLearnerRepo{state: working},
		Courses:     &memCourseRepo{state: working},
		Enrollments: &memEnrollmentRepo{state: working},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	s.state = working
	return nil
}

// seed mutates state directly, outside any transaction. Test setup only.
func (s *memStore) seed(fn func(st *memState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

type memPlatformRepo struct{ state *memState }

func (r *memPlatformRepo) Create(_ context.Context, cfg *platform.Config) error {
	if r.state.config != nil {
		return shared.ErrPlatformAlreadyInitialized
	}
	c := *cfg
	r.state.config = &c
	return nil
}

func (r *memPlatformRepo) Get(_ context.Context) (*platform.Config, error) {
	if r.state.config == nil {
		return nil, shared.ErrPlatformNotInitialized
	}
	return r.state.config, nil
}

func (r *memPlatformRepo) Update(_ context.Context, cfg *platform.Config) error {
	if r.state.config == nil {
		return shared.ErrPlatformNotInitialized
	}
	c := *cfg
	r.state.config = &c
	return nil
}

type memLearnerRepo struct{ state *memState }

func (r *memLearnerRepo) Create(_ context.Context, p *learner.Profile) error {
	if _, ok := r.state.learners[p.Owner]; ok {
		return shared.ErrLearnerAlreadyInitialized
	}
	cp := *p
	r.state.learners[p.Owner] = &cp
	return nil
}

func (r *memLearnerRepo) GetByOwner(_ context.Context, owner shared.LearnerID) (*learner.Profile, error) {
	p, ok := r.state.learners[owner]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return p, nil
}

func (r *memLearnerRepo) Update(_ context.Context, p *learner.Profile) error {
	if _, ok := r.state.learners[p.Owner]; !ok {
		return shared.ErrLearnerNotFound
	}
	cp := *p
	r.state.learners[p.Owner] = &cp
	return nil
}

func (r *memLearnerRepo) Exists(_ context.Context, owner shared.LearnerID) (bool, error) {
	_, ok := r.state.learners[owner]
	return ok, nil
}

func (r *memLearnerRepo) FindStreaksAtRisk(_ context.Context, asOf int64, limit int) ([]*learner.Profile, error) {
	var out []*learner.Profile
	for _, p := range r.state.learners {
		if p.CurrentStreak > 0 && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memLearnerRepo) Count(_ context.Context) (int, error) {
	return len(r.state.learners), nil
}

type memCourseRepo struct{ state *memState }

func (r *memCourseRepo) Create(_ context.Context, c *course.Course) error {
	if _, ok := r.state.courses[c.ID]; ok {
		return shared.ErrCourseAlreadyExists
	}
	cp := *c
	r.state.courses[c.ID] = &cp
	return nil
}

func (r *memCourseRepo) GetByID(_ context.Context, id shared.CourseID) (*course.Course, error) {
	c, ok := r.state.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return c, nil
}

func (r *memCourseRepo) Update(_ context.Context, c *course.Course) error {
	if _, ok := r.state.courses[c.ID]; !ok {
		return shared.ErrCourseNotFound
	}
	cp := *c
	r.state.courses[c.ID] = &cp
	return nil
}

func (r *memCourseRepo) List(_ context.Context, opts course.ListOptions) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range r.state.courses {
		if opts.OnlyActive && !c.IsActive {
			continue
		}
		if opts.TrackID != nil && c.TrackID != *opts.TrackID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCourseRepo) Exists(_ context.Context, id shared.CourseID) (bool, error) {
	_, ok := r.state.courses[id]
	return ok, nil
}

func (r *memCourseRepo) Count(_ context.Context, opts course.ListOptions) (int, error) {
	list, _ := r.List(context.Background(), opts)
	return len(list), nil
}

type memEnrollmentRepo struct{ state *memState }

func (r *memEnrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	key := enrollmentKey(e.Learner, e.Course)
	if _, ok := r.state.enrollments[key]; ok {
		return shared.ErrAlreadyEnrolled
	}
	cp := *e
	r.state.enrollments[key] = &cp
	return nil
}

func (r *memEnrollmentRepo) Get(_ context.Context, l shared.LearnerID, c shared.CourseID) (*enrollment.Enrollment, error) {
	e, ok := r.state.enrollments[enrollmentKey(l, c)]
	if !ok {
		return nil, shared.ErrNotEnrolled
	}
	return e, nil
}

func (r *memEnrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	key := enrollmentKey(e.Learner, e.Course)
	if _, ok := r.state.enrollments[key]; !ok {
		return shared.ErrNotEnrolled
	}
	cp := *e
	r.state.enrollments[key] = &cp
	return nil
}

func (r *memEnrollmentRepo) Delete(_ context.Context, l shared.LearnerID, c shared.CourseID) error {
	key := enrollmentKey(l, c)
	if _, ok := r.state.enrollments[key]; !ok {
		return shared.ErrNotEnrolled
	}
	delete(r.state.enrollments, key)
	return nil
}

func (r *memEnrollmentRepo) ListByLearner(_ context.Context, l shared.LearnerID) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.state.enrollments {
		if e.Learner == l {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Course < out[j].Course })
	return out, nil
}

func (r *memEnrollmentRepo) Exists(_ context.Context, l shared.LearnerID, c shared.CourseID) (bool, error) {
	_, ok := r.state.enrollments[enrollmentKey(l, c)]
	return ok, nil
}

func (r *memEnrollmentRepo) CountByCourse(_ context.Context, c shared.CourseID) (int, error) {
	n := 0
	for _, e := range r.state.enrollments {
		if e.Course == c {
			n++
		}
	}
	return n, nil
}

// capturePublisher records published events in order.
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type mintCall struct {
	Recipient shared.LearnerID
	Amount    uint32
	Auth      issuing.MintAuthorization
}

// fakeRewardIssuer records mints and optionally fails.
type fakeRewardIssuer struct {
	mu    sync.Mutex
	calls []mintCall
	fail  error
}

func (f *fakeRewardIssuer) Mint(_ context.Context, recipient shared.LearnerID, amount uint32, auth issuing.MintAuthorization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, mintCall{Recipient: recipient, Amount: amount, Auth: auth})
	return nil
}

func (f *fakeRewardIssuer) minted() []mintCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mintCall(nil), f.calls...)
}

// fakeCredentialIssuer returns a deterministic asset ID.
type fakeCredentialIssuer struct {
	mu    sync.Mutex
	calls []issuing.CredentialSpec
	fail  error
}

func (f *fakeCredentialIssuer) CreateOrUpdate(_ context.Context, spec issuing.CredentialSpec, existingAsset string) (issuing.CredentialResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return issuing.CredentialResult{}, f.fail
	}
	f.calls = append(f.calls, spec)
	if existingAsset != "" {
		return issuing.CredentialResult{AssetID: existingAsset, Created: false}, nil
	}
	return issuing.CredentialResult{AssetID: "asset-" + spec.Owner.String()[:8], Created: true}, nil
}

var errIssuerDown = errors.New("issuer unavailable")
