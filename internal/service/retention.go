package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/vibolsen/campus-portal/config"
	obserrors "github.com/vibolsen/campus-portal/internal/observability/errors"
	"github.com/vibolsen/campus-portal/internal/observability/statsd"
)

// AuditPruner deletes audit events older than a cutoff, at most batch per call.
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Repo    AuditPruner        // Required
	Config  config.AuditConfig // Required
	Logger  *slog.Logger
	Metrics statsd.Sink
	Now     func() time.Time
}

// RetentionService periodically prunes the login audit trail.
type RetentionService struct {
	repo    AuditPruner
	cfg     config.AuditConfig
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// maxBatchesPerPass bounds one pass so a large backlog cannot monopolize the database.
const maxBatchesPerPass = 100

// NewRetentionService constructs a RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	if opts.Repo == nil {
		return nil, errors.New("audit pruner is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Metrics
	if sink == nil {
		sink = statsd.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RetentionService{
		repo:    opts.Repo,
		cfg:     opts.Config,
		logger:  logger.With("component", "audit_retention"),
		metrics: sink,
		now:     now,
	}, nil
}

// Run prunes at the configured interval until ctx is canceled.
// Returns nil on graceful shutdown.
func (s *RetentionService) Run(ctx context.Context) error {
	if s.cfg.Retention <= 0 {
		s.logger.InfoContext(ctx, "audit retention disabled")
		<-ctx.Done()
		return nil
	}
	s.logger.InfoContext(ctx, "starting audit retention", "interval", s.cfg.Interval, "retention", s.cfg.Retention)
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := s.Prune(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "audit prune failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "audit retention stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Prune deletes expired events in batches and returns how many were removed.
func (s *RetentionService) Prune(ctx context.Context) (int64, error) {
	start := s.now()
	cutoff := start.Add(-s.cfg.Retention)
	var total int64
	var err error
	for range maxBatchesPerPass {
		var n int64
		n, err = s.repo.DeleteOlderThan(ctx, cutoff, s.cfg.BatchSize)
		total += n
		if err != nil || n < int64(s.cfg.BatchSize) {
			break
		}
	}

	tags := map[string]string{"result": "success"}
	if err != nil {
		tags["result"] = "error"
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("audit.pruned", total, tags)
	s.metrics.Timing("audit.prune.duration", s.now().Sub(start), map[string]string{"result": tags["result"]})
	if total > 0 {
		s.logger.InfoContext(ctx, "pruned auth events", "count", total, "cutoff", cutoff)
	}
	return total, err
}

// waitWithJitter delays up to 10% of the interval so replicas do not prune in lockstep.
func (s *RetentionService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.cfg.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
