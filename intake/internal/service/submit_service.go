package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/telhawk-systems/relay/common/logging"
	"github.com/telhawk-systems/relay/common/models"
	"github.com/telhawk-systems/relay/intake/internal/metrics"
	"github.com/telhawk-systems/relay/intake/internal/ratelimit"
	"github.com/telhawk-systems/relay/intake/internal/submission"
	"github.com/telhawk-systems/relay/intake/pkg/forwarder"
)

// Forwarder hands a record to the ingestion service.
type Forwarder interface {
	Forward(ctx context.Context, rec models.Record) error
}

// Outcome is what happened to a submission after it was decoded.
type Outcome string

const (
	OutcomeForwarded     Outcome = "forwarded"
	OutcomeForwardFailed Outcome = "forward_failed"
	OutcomeRateLimited   Outcome = "rate_limited"
)

// Stats are the counters reported on /readyz.
type Stats struct {
	TotalSubmissions int64     `json:"total_submissions"`
	Forwarded        int64     `json:"forwarded"`
	ForwardFailed    int64     `json:"forward_failed"`
	RateLimited      int64     `json:"rate_limited"`
	PayloadErrors    int64     `json:"payload_errors"`
	LastSubmission   time.Time `json:"last_submission,omitempty"`
}

type SubmitService struct {
	forwarder Forwarder
	limiter   ratelimit.RateLimiter
	logger    *logging.Logger

	stats      Stats
	statsMutex sync.RWMutex
}

// NewSubmitService returns a service forwarding through f. A nil limiter
// disables rate limiting.
func NewSubmitService(f Forwarder, limiter ratelimit.RateLimiter, logger *logging.Logger) *SubmitService {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SubmitService{
		forwarder: f,
		limiter:   limiter,
		logger:    logger,
	}
}

// Submit forwards rec on behalf of clientKey and reports the outcome. It
// never returns an error: every failure is logged, counted and swallowed.
// Forwarding is detached from ctx cancellation so a submitter hanging up
// does not abort a delivery already in progress; the forwarder's own
// timeout still bounds it.
func (s *SubmitService) Submit(ctx context.Context, rec models.Record, clientKey string) Outcome {
	allowed, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		metrics.RateLimitErrors.Inc()
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing submission",
			logging.Remote(clientKey),
			logging.Error(err),
		)
		allowed = true
	}
	if !allowed {
		s.logger.InfoContext(ctx, "submission dropped by rate limiter",
			logging.Remote(clientKey),
			logging.Username(rec.Username()),
		)
		s.record(OutcomeRateLimited)
		return OutcomeRateLimited
	}

	start := time.Now()
	err = s.forwarder.Forward(context.WithoutCancel(ctx), rec)
	elapsed := time.Since(start)
	metrics.ForwardDuration.Observe(elapsed.Seconds())

	if err != nil {
		attrs := []any{
			logging.Username(rec.Username()),
			logging.Duration(elapsed),
			logging.Error(err),
		}
		var unavailable *forwarder.ForwardUnavailableError
		if errors.As(err, &unavailable) {
			attrs = append(attrs, logging.Addr(unavailable.Addr), slog.String("op", unavailable.Op))
		}
		s.logger.ErrorContext(ctx, "forward to ingestion failed", attrs...)
		s.record(OutcomeForwardFailed)
		return OutcomeForwardFailed
	}

	s.logger.DebugContext(ctx, "submission forwarded",
		logging.Username(rec.Username()),
		logging.Duration(elapsed),
	)
	s.record(OutcomeForwarded)
	return OutcomeForwarded
}

// NotePayloadError records a body that could not be decoded. The caller
// still submits the degraded record.
func (s *SubmitService) NotePayloadError(ctx context.Context, err error) {
	encoding := "unknown"
	var payloadErr *submission.ClientPayloadError
	if errors.As(err, &payloadErr) {
		encoding = string(payloadErr.Encoding)
	}
	metrics.PayloadErrors.WithLabelValues(encoding).Inc()

	s.logger.WarnContext(ctx, "undecodable submission body, forwarding empty message",
		slog.String("encoding", encoding),
		logging.Error(err),
	)

	s.statsMutex.Lock()
	s.stats.PayloadErrors++
	s.statsMutex.Unlock()
}

func (s *SubmitService) GetStats() Stats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()
	return s.stats
}

func (s *SubmitService) record(outcome Outcome) {
	metrics.ForwardsTotal.WithLabelValues(string(outcome)).Inc()

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TotalSubmissions++
	s.stats.LastSubmission = time.Now()
	switch outcome {
	case OutcomeForwarded:
		s.stats.Forwarded++
	case OutcomeForwardFailed:
		s.stats.ForwardFailed++
	case OutcomeRateLimited:
		s.stats.RateLimited++
	}
}
