package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"notary-chain/notary-portal/notary-portal-backend/internal/documents"
	"notary-chain/notary-portal/notary-portal-backend/internal/sessions"
)

// Manager drives the periodic auto-verify sweeps. It holds no workflow state
// of its own: overlapping sweeps are safe because every sweep re-reads the
// current status before writing.
type Manager struct {
	cron      *cron.Cron
	documents documents.Service
	sessions  sessions.Service
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	running bool

	statsMu       sync.Mutex
	sweptTotal    int64
	failuresTotal int64
}

type Config struct {
	SweepInterval time.Duration
	SweepTimeout  time.Duration
}

func NewManager(documentService documents.Service, sessionService sessions.Service, cfg Config, logger *zap.Logger) *Manager {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 5 * time.Minute
	}
	return &Manager{
		cron:      cron.New(),
		documents: documentService,
		sessions:  sessionService,
		interval:  cfg.SweepInterval,
		timeout:   cfg.SweepTimeout,
		logger:    logger,
	}
}

// Start registers the sweep jobs and starts the cron loop.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := m.cron.AddFunc("@every "+m.interval.String(), m.runSweep); err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}
	// Daily activity summary for operators.
	if _, err := m.cron.AddFunc("0 0 * * *", m.logSummary); err != nil {
		return fmt.Errorf("failed to register summary job: %w", err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Info("scheduler started", zap.Duration("sweep_interval", m.interval))
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.running = false
	m.logger.Info("scheduler stopped")
}

// RunSweep triggers one sweep immediately. Exposed for manual and test
// invocation alongside the cron cadence.
func (m *Manager) RunSweep(ctx context.Context) {
	docResults, err := m.documents.AutoVerify(ctx)
	if err != nil {
		m.logger.Error("document auto-verify sweep failed", zap.Error(err))
	} else {
		m.recordResults(len(docResults), countDocumentFailures(docResults))
		for _, r := range docResults {
			if r.Err != nil {
				m.logger.Warn("document sweep item failed",
					zap.String("subject_id", r.SubjectID.String()), zap.Error(r.Err))
			}
		}
	}

	sessionResults, err := m.sessions.SweepStalePending(ctx)
	if err != nil {
		m.logger.Error("session staleness sweep failed", zap.Error(err))
		return
	}
	m.recordResults(len(sessionResults), countSessionFailures(sessionResults))
	for _, r := range sessionResults {
		if r.Err != nil {
			m.logger.Warn("session sweep item failed",
				zap.String("subject_id", r.SubjectID.String()), zap.Error(r.Err))
		}
	}
}

func (m *Manager) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	m.RunSweep(ctx)
}

func (m *Manager) recordResults(total, failed int) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.sweptTotal += int64(total)
	m.failuresTotal += int64(failed)
}

func (m *Manager) logSummary() {
	m.statsMu.Lock()
	swept, failed := m.sweptTotal, m.failuresTotal
	m.sweptTotal, m.failuresTotal = 0, 0
	m.statsMu.Unlock()

	m.logger.Info("daily sweep summary",
		zap.Int64("subjects_swept", swept),
		zap.Int64("item_failures", failed))
}

func countDocumentFailures(results []documents.SweepResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func countSessionFailures(results []sessions.SweepResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
