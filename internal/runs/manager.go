package runs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/report"
	"content-analyzer/internal/results"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
)

const (
	saveTimeout      = 30 * time.Second
	subscriberBuffer = 16
)

// Runner executes one pipeline run.
type Runner interface {
	Check(file pipeline.File, questions catalog.Catalog) error
	Run(ctx context.Context, jobID string, file pipeline.File, questions catalog.Catalog, sink pipeline.Sink) (pipeline.Outcome, error)
}

// ResultSaver persists finished results.
type ResultSaver interface {
	Save(ctx context.Context, ownerID, fileName, questionSetID string, result analysis.Result) (results.Record, error)
}

// Snapshot is the observable state of the current run.
type Snapshot struct {
	Job           pipeline.Job     `json:"job"`
	QuestionSetID string           `json:"questionSetId"`
	Active        bool             `json:"active"`
	Result        *analysis.Result `json:"result,omitempty"`
	ResultID      string           `json:"resultId,omitempty"`
}

type state struct {
	owner         string
	questionSetID string
	job           pipeline.Job
	active        bool
	result        *analysis.Result
	resultID      string
	cancel        context.CancelFunc
	done          chan struct{}
}

// Manager holds the single current run. A new run cannot start while one is
// active; a finished run stays current until it is reset or replaced.
type Manager struct {
	Runner  Runner
	Results ResultSaver
	Timeout time.Duration
	NewID   func() string

	mu      sync.Mutex
	current *state
	subs    map[chan Snapshot]string
}

func NewManager(runner Runner, saver ResultSaver, timeout time.Duration) *Manager {
	return &Manager{Runner: runner, Results: saver, Timeout: timeout, NewID: uuid.NewString}
}

// Start validates the input and launches a run in the background. The run
// does not inherit ctx; use Cancel to stop it.
func (m *Manager) Start(ctx context.Context, owner string, file pipeline.File, set catalog.QuestionSet) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := m.Runner.Check(file, set.Questions); err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	if m.current != nil && m.current.active {
		m.mu.Unlock()
		return Snapshot{}, ErrRunActive
	}

	newID := m.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	runCtx, cancel := context.WithCancel(context.Background())
	if m.Timeout > 0 {
		runCtx, cancel = withTimeout(runCtx, cancel, m.Timeout)
	}
	now := time.Now().UTC()
	st := &state{
		owner:         owner,
		questionSetID: set.ID,
		job: pipeline.Job{
			ID:            newID(),
			FileName:      file.Name,
			Stage:         pipeline.StageIdle,
			StatusMessage: "Queued",
			StartedAt:     now,
			UpdatedAt:     now,
		},
		active: true,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.current = st
	snap := st.snapshot()
	m.broadcastLocked(snap)
	m.mu.Unlock()

	questions := set.Questions.Clone()
	go m.execute(runCtx, st, file, questions)
	return snap, nil
}

func withTimeout(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}

func (m *Manager) execute(ctx context.Context, st *state, file pipeline.File, questions catalog.Catalog) {
	defer close(st.done)
	defer st.cancel()

	sink := pipeline.SinkFunc(func(job pipeline.Job) {
		m.mu.Lock()
		defer m.mu.Unlock()
		st.job = job
		if m.current == st {
			m.broadcastLocked(st.snapshot())
		}
	})

	out, err := m.Runner.Run(ctx, st.job.ID, file, questions, sink)

	var resultID string
	if err == nil && m.Results != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		rec, saveErr := m.Results.Save(saveCtx, st.owner, file.Name, st.questionSetID, out.Result)
		cancel()
		if saveErr != nil {
			telemetry.Error("run.save_failed", map[string]any{
				"run_id": st.job.ID,
				"error":  util.SanitizeError(saveErr),
			})
		} else {
			resultID = rec.ID
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st.active = false
	if err == nil {
		res := out.Result
		st.result = &res
		st.job = out.Job
		st.resultID = resultID
	}
	if m.current == st {
		m.broadcastLocked(st.snapshot())
	}
}

// Current returns the owner's current run.
func (m *Manager) Current(owner string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.ownedLocked(owner)
	if err != nil {
		return Snapshot{}, err
	}
	return st.snapshot(), nil
}

// Cancel stops the owner's active run. The run then finishes as failed.
func (m *Manager) Cancel(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.ownedLocked(owner)
	if err != nil {
		return err
	}
	if !st.active {
		return ErrNoRun
	}
	telemetry.Info("run.cancel_requested", map[string]any{"run_id": st.job.ID})
	st.cancel()
	return nil
}

// Reset discards the owner's finished run and its result.
func (m *Manager) Reset(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.ownedLocked(owner)
	if err != nil {
		return err
	}
	if st.active {
		return ErrRunActive
	}
	m.current = nil
	return nil
}

// Report renders the current run's result.
func (m *Manager) Report(owner string, format report.Format) ([]byte, string, error) {
	m.mu.Lock()
	st, err := m.ownedLocked(owner)
	if err != nil {
		m.mu.Unlock()
		return nil, "", err
	}
	active, result, fileName := st.active, st.result, st.job.FileName
	m.mu.Unlock()

	if active {
		return nil, "", ErrNotFinished
	}
	if result == nil {
		return nil, "", ErrNoResult
	}
	data, err := report.Render(format, report.Document{SourceName: fileName, Result: *result})
	if err != nil {
		return nil, "", err
	}
	return data, report.FileName(fileName, format), nil
}

// Subscribe streams snapshots of the owner's current run, starting with the
// present one. Slow readers skip intermediate snapshots.
func (m *Manager) Subscribe(owner string) (<-chan Snapshot, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.ownedLocked(owner)
	if err != nil {
		return nil, nil, err
	}
	if m.subs == nil {
		m.subs = make(map[chan Snapshot]string)
	}
	ch := make(chan Snapshot, subscriberBuffer)
	ch <- st.snapshot()
	m.subs[ch] = owner

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
		})
	}
	return ch, unsubscribe, nil
}

// Wait blocks until there is no active run or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	var done chan struct{}
	if m.current != nil && m.current.active {
		done = m.current.done
	}
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) ownedLocked(owner string) (*state, error) {
	if m.current == nil || m.current.owner != owner {
		return nil, ErrNoRun
	}
	return m.current, nil
}

func (m *Manager) broadcastLocked(snap Snapshot) {
	owner := ""
	if m.current != nil {
		owner = m.current.owner
	}
	for ch, subOwner := range m.subs {
		if subOwner != owner {
			continue
		}
		select {
		case ch <- snap:
		default:
			// Drop the oldest so the latest state always gets through.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (st *state) snapshot() Snapshot {
	return Snapshot{
		Job:           st.job,
		QuestionSetID: st.questionSetID,
		Active:        st.active,
		Result:        st.result,
		ResultID:      st.resultID,
	}
}
