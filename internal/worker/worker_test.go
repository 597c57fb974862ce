package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/notify"
)

type fakeOptimizer struct {
	result   *domain.OptimizationResult
	err      error
	calls    int
	deadline bool
}

func (f *fakeOptimizer) Optimize(ctx context.Context, input *domain.ScenarioInput, seed int64, origin string) (*domain.OptimizationResult, error) {
	f.calls++
	_, f.deadline = ctx.Deadline()
	return f.result, f.err
}

type memStore struct {
	runs      map[uuid.UUID]domain.OptimizationRun
	getErr    error
	updateErr error
	statuses  []domain.RunStatus
}

func (s *memStore) GetOptimizationRunByID(ctx context.Context, id uuid.UUID) (*domain.OptimizationRun, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	run, ok := s.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &run, nil
}

func (s *memStore) UpdateOptimizationRun(ctx context.Context, run *domain.OptimizationRun) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	current := s.runs[run.ID]
	if current.Version != run.Version {
		return sql.ErrNoRows
	}
	run.Version++
	s.runs[run.ID] = *run
	s.statuses = append(s.statuses, run.Status)
	return nil
}

type memCache struct {
	runs map[uuid.UUID]domain.OptimizationRun
}

func (c *memCache) SetRun(ctx context.Context, run *domain.OptimizationRun) error {
	c.runs[run.ID] = *run
	return nil
}

type fakeNotifier struct {
	sent []*domain.MailMessage
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, msg *domain.MailMessage) error {
	n.sent = append(n.sent, msg)
	return n.err
}

type fixture struct {
	worker    *Worker
	optimizer *fakeOptimizer
	store     *memStore
	cache     *memCache
	notifier  *fakeNotifier
	runID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	runID := uuid.New()
	f := &fixture{
		optimizer: &fakeOptimizer{
			result: &domain.OptimizationResult{
				MejoresSoluciones: []domain.Solution{{Fitness: 1800, Resumen: domain.SolutionSummary{Cobertura: 1, PoblacionBeneficiada: 700}}},
				Convergencia:      domain.Convergence{GeneracionesEjecutadas: 25, Estado: domain.Converged},
			},
		},
		store: &memStore{runs: map[uuid.UUID]domain.OptimizationRun{
			runID: {ID: runID, DisasterType: "sismo", Status: domain.RunQueued, Version: 1},
		}},
		cache:    &memCache{runs: make(map[uuid.UUID]domain.OptimizationRun)},
		notifier: &fakeNotifier{},
		runID:    runID,
	}
	f.worker = New(f.optimizer, f.store, f.cache, f.notifier, time.Minute, nil)
	return f
}

func jobBody(t *testing.T, runID uuid.UUID, email string) []byte {
	t.Helper()
	body, err := json.Marshal(domain.OptimizationJob{
		RunID:       runID,
		Scenario:    &domain.ScenarioInput{ScenarioConfig: &domain.ScenarioConfig{TipoDesastre: "sismo"}},
		Seed:        3,
		NotifyEmail: email,
	})
	require.NoError(t, err)
	return body
}

func TestHandleCompletesRun(t *testing.T) {
	f := newFixture(t)

	outcome := f.worker.Handle(context.Background(), jobBody(t, f.runID, "ops@example.org"))
	assert.Equal(t, Ack, outcome)
	assert.Equal(t, 1, f.optimizer.calls)
	assert.True(t, f.optimizer.deadline)

	assert.Equal(t, []domain.RunStatus{domain.RunRunning, domain.RunCompleted}, f.store.statuses)
	stored := f.store.runs[f.runID]
	assert.Equal(t, 25, stored.Generations)
	require.NotNil(t, stored.BestFitness)
	assert.Equal(t, 1800.0, *stored.BestFitness)
	assert.Equal(t, domain.RunCompleted, f.cache.runs[f.runID].Status)

	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0]
	assert.Equal(t, notify.MailTypeRunCompleted, msg.Type)
	assert.Equal(t, "ops@example.org", msg.To)
	data := msg.Data.(domain.RunCompletedMailData)
	assert.Equal(t, 700, data.BeneficiaryPopulation)
}

func TestHandleWithoutEmailDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, Ack, f.worker.Handle(context.Background(), jobBody(t, f.runID, "")))
	assert.Empty(t, f.notifier.sent)
}

func TestHandleEngineErrorIsStored(t *testing.T) {
	f := newFixture(t)
	f.optimizer.result = nil
	f.optimizer.err = domain.NewError(domain.ErrUnknownDisaster, "未知的灾害类型 %q", "tsunami")

	assert.Equal(t, Ack, f.worker.Handle(context.Background(), jobBody(t, f.runID, "ops@example.org")))

	stored := f.store.runs[f.runID]
	assert.Equal(t, domain.RunFailed, stored.Status)
	assert.Equal(t, domain.ErrUnknownDisaster, stored.ErrorKind)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "failed", f.notifier.sent[0].Data.(domain.RunCompletedMailData).Status)
}

func TestHandleMailFailureStillAcks(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	assert.Equal(t, Ack, f.worker.Handle(context.Background(), jobBody(t, f.runID, "ops@example.org")))
	assert.Equal(t, domain.RunCompleted, f.store.runs[f.runID].Status)
}

func TestHandleOutcomes(t *testing.T) {
	t.Run("格式错误的消息被丢弃", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, Drop, f.worker.Handle(context.Background(), []byte(`{"seed": 1}`)))
		assert.Zero(t, f.optimizer.calls)
	})

	t.Run("运行记录不存在", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, Drop, f.worker.Handle(context.Background(), jobBody(t, uuid.New(), "")))
	})

	t.Run("数据库故障重新入队", func(t *testing.T) {
		f := newFixture(t)
		f.store.getErr = errors.New("connection reset")
		assert.Equal(t, Requeue, f.worker.Handle(context.Background(), jobBody(t, f.runID, "")))
		assert.Zero(t, f.optimizer.calls)
	})

	t.Run("更新失败重新入队", func(t *testing.T) {
		f := newFixture(t)
		f.store.updateErr = errors.New("connection reset")
		assert.Equal(t, Requeue, f.worker.Handle(context.Background(), jobBody(t, f.runID, "")))
	})

	t.Run("重复投递直接确认", func(t *testing.T) {
		f := newFixture(t)
		run := f.store.runs[f.runID]
		run.Status = domain.RunCompleted
		f.store.runs[f.runID] = run

		assert.Equal(t, Ack, f.worker.Handle(context.Background(), jobBody(t, f.runID, "")))
		assert.Zero(t, f.optimizer.calls)
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ack", Ack.String())
	assert.Equal(t, "requeue", Requeue.String())
	assert.Equal(t, "drop", Drop.String())
}
