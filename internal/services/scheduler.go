package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/metrics"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// ErrScanSuperseded is the cause of a scan cancelled because a different SIM
// became active before it ran.
var ErrScanSuperseded = errors.New("scan superseded by SIM change")

// SelectionSource reports the active SIM and announces changes to it.
type SelectionSource interface {
	CurrentSimID() string
	Subscribe(l store.Listener) (unsubscribe func())
}

var _ SelectionSource = (*store.Store)(nil)

// ScanTask is one delayed import bound to the SIM that was active when it was
// scheduled.
type ScanTask struct {
	ID    string
	SimID string

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	results []ImportResult
	err     error
}

// Cancel stops the task if it has not run yet.
func (t *ScanTask) Cancel() {
	t.cancel(context.Canceled)
}

// Done is closed once the task finished or was cancelled.
func (t *ScanTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task ends or ctx is done. A cancelled task reports
// ErrScanSuperseded or context.Canceled.
func (t *ScanTask) Wait(ctx context.Context) ([]ImportResult, error) {
	select {
	case <-t.done:
		return t.results, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ScanScheduler runs delayed SMS scans for the active SIM and cancels the
// pending ones as soon as the selection moves to another SIM.
type ScanScheduler struct {
	importer *RechargeImporter
	source   SelectionSource
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	tasks       map[string]*ScanTask
	stopped     bool
	wg          sync.WaitGroup
	unsubscribe func()
}

func NewScanScheduler(importer *RechargeImporter, source SelectionSource, logger *log.Logger, m *metrics.Metrics) *ScanScheduler {
	if logger == nil {
		logger = log.Discard()
	}
	s := &ScanScheduler{
		importer: importer,
		source:   source,
		logger:   logger.WithComponent(log.ComponentSync),
		metrics:  m,
		tasks:    make(map[string]*ScanTask),
	}
	s.unsubscribe = source.Subscribe(func(st store.State) {
		s.supersede(st.CurrentSimID)
	})
	return s
}

// Schedule imports msgs for simID after delay. The task is cancelled with
// ErrScanSuperseded if simID is not the active SIM when scheduled or stops
// being it before the delay elapses. Message SIM ids are overwritten with
// simID.
func (s *ScanScheduler) Schedule(simID string, msgs []core.SmsMessage, delay time.Duration) *ScanTask {
	ctx, cancel := context.WithCancelCause(context.Background())
	t := &ScanTask{
		ID:     uuid.NewString(),
		SimID:  simID,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	batch := make([]core.SmsMessage, len(msgs))
	for i, m := range msgs {
		m.SimID = simID
		batch[i] = m
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel(context.Canceled)
		t.err = context.Canceled
		close(t.done)
		return t
	}
	s.tasks[t.ID] = t
	s.wg.Add(1)
	s.mu.Unlock()

	if s.source.CurrentSimID() != simID {
		cancel(ErrScanSuperseded)
	}

	go s.run(t, batch, delay)
	return t
}

func (s *ScanScheduler) run(t *ScanTask, batch []core.SmsMessage, delay time.Duration) {
	defer s.wg.Done()
	defer close(t.done)
	defer s.forget(t.ID)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-t.ctx.Done():
		t.err = context.Cause(t.ctx)
		s.finished(t)
		return
	case <-timer.C:
	}
	if t.ctx.Err() != nil {
		t.err = context.Cause(t.ctx)
		s.finished(t)
		return
	}

	// The listener may not have fired yet for a change that raced the timer.
	if s.source.CurrentSimID() != t.SimID {
		t.cancel(ErrScanSuperseded)
		t.err = ErrScanSuperseded
		s.finished(t)
		return
	}

	t.results = s.importer.ImportAll(t.ctx, batch)
	s.finished(t)
}

func (s *ScanScheduler) finished(t *ScanTask) {
	result := "completed"
	switch {
	case errors.Is(t.err, ErrScanSuperseded):
		result = "superseded"
	case t.err != nil:
		result = "canceled"
	}
	s.metrics.ScanFinished(result)
	s.logger.Debug("Scan task finished",
		"task_id", t.ID,
		log.FieldSimID, t.SimID,
		"result", result,
		"messages", len(t.results))
}

func (s *ScanScheduler) supersede(current string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.SimID != current {
			t.cancel(ErrScanSuperseded)
		}
	}
}

func (s *ScanScheduler) forget(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// Pending returns the number of tasks not yet finished.
func (s *ScanScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels pending tasks, detaches from the store and waits for running
// imports to return.
func (s *ScanScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, t := range s.tasks {
		t.cancel(context.Canceled)
	}
	s.mu.Unlock()

	s.unsubscribe()
	s.wg.Wait()
}
