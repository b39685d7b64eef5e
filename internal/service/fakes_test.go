package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"cronkeeper/internal/cache/memory"
	dispatch "cronkeeper/internal/dispatch/iface"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/registry"
	"cronkeeper/internal/repository"
	"cronkeeper/internal/schedule"

	"github.com/stretchr/testify/require"
)

var errStoreUnavailable = errors.New("store unavailable")

// fakeStore is an in-memory job repository with failure injection
type fakeStore struct {
	mu     sync.Mutex
	jobs   map[int64]*domain.JobDefinition
	nextID int64

	schedulableErr error
	conflictsErr   error
	writeErr       error
	findErrs       map[int64]error
	writes         []runStateWrite
}

type runStateWrite struct {
	ID      int64
	Status  domain.JobStatus
	Enabled bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:     make(map[int64]*domain.JobDefinition),
		findErrs: make(map[int64]error),
	}
}

// put stores job as given, keeping its id
func (f *fakeStore) put(job *domain.JobDefinition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *job
	f.jobs[job.ID] = &stored
	if job.ID > f.nextID {
		f.nextID = job.ID
	}
}

func (f *fakeStore) get(id int64) *domain.JobDefinition {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func (f *fakeStore) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeStore) FindSchedulableJobs(_ context.Context) ([]*domain.JobDefinition, error) {
	return f.filter(f.schedulableErr, func(j *domain.JobDefinition) bool { return j.ShouldRun() })
}

func (f *fakeStore) FindRunStateConflicts(_ context.Context) ([]*domain.JobDefinition, error) {
	return f.filter(f.conflictsErr, func(j *domain.JobDefinition) bool { return j.HasRunStateConflict() })
}

func (f *fakeStore) List(_ context.Context) ([]*domain.JobDefinition, error) {
	return f.filter(nil, func(*domain.JobDefinition) bool { return true })
}

func (f *fakeStore) filter(err error, keep func(*domain.JobDefinition) bool) ([]*domain.JobDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.JobDefinition, 0)
	for _, job := range f.jobs {
		if keep(job) {
			copied := *job
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindJob(_ context.Context, id int64) (*domain.JobDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.findErrs[id]; err != nil {
		return nil, err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) WriteRunState(_ context.Context, id int64, status domain.JobStatus, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = status
	job.Enabled = enabled
	f.writes = append(f.writes, runStateWrite{ID: id, Status: status, Enabled: enabled})
	return nil
}

func (f *fakeStore) Create(_ context.Context, job *domain.JobDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	job.ID = f.nextID
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeStore) Update(_ context.Context, job *domain.JobDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.jobs[job.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored := *job
	stored.Status = existing.Status
	stored.Enabled = existing.Enabled
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}

// recordingDispatcher keeps every request it receives
type recordingDispatcher struct {
	mu       sync.Mutex
	requests []*domain.ExecutionRequest
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req *domain.ExecutionRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return d.err
}

func (d *recordingDispatcher) received() []*domain.ExecutionRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*domain.ExecutionRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

var _ dispatch.Dispatcher = (*recordingDispatcher)(nil)

type schedulerFixture struct {
	store      *fakeStore
	timer      *schedule.FakeTimer
	registry   *registry.Registry
	dispatcher *recordingDispatcher
	history    *ExecutionHistory
	scheduler  *JobScheduler
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	log := logger.NewNop()

	c, err := memory.NewMemoryCache(0, log)
	require.NoError(t, err)

	f := &schedulerFixture{
		store:      newFakeStore(),
		timer:      schedule.NewFakeTimer(),
		dispatcher: &recordingDispatcher{},
		history:    NewExecutionHistory(c, 10, log),
	}
	f.registry = registry.New(f.timer, log)
	f.scheduler = NewJobScheduler(f.registry, f.store, f.dispatcher, f.history, log)
	f.scheduler.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func storedJob(id int64, expr string, status domain.JobStatus, enabled bool) *domain.JobDefinition {
	job := domain.NewJobDefinition(fmt.Sprintf("job-%d", id), expr, "https://example.com/hook", false)
	job.ID = id
	job.Status = status
	job.Enabled = enabled
	return job
}

func noop() {}
