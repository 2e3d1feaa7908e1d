package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/telhawk-systems/relay/common/logging"
	"github.com/telhawk-systems/relay/common/messaging"
	"github.com/telhawk-systems/relay/common/models"
	"github.com/telhawk-systems/relay/ingestion/internal/metrics"
	"github.com/telhawk-systems/relay/ingestion/internal/storage"
)

// DefaultInsertTimeout bounds one sink insert.
const DefaultInsertTimeout = 5 * time.Second

// rawLogLimit caps how much of a malformed payload is written to the log.
const rawLogLimit = 1024

// Payload outcomes, used as metric labels and in logs.
const (
	OutcomeStored        = "stored"
	OutcomeMalformed     = "malformed"
	OutcomePersistFailed = "persist_failed"
)

// Stats are the counters reported on /readyz.
type Stats struct {
	TotalPayloads int64     `json:"total_payloads"`
	TotalBytes    int64     `json:"total_bytes"`
	Stored        int64     `json:"stored"`
	Malformed     int64     `json:"malformed"`
	PersistFailed int64     `json:"persist_failed"`
	LastStored    time.Time `json:"last_stored"`
}

// Ingestor turns raw payloads into stored documents.
type Ingestor struct {
	sink          storage.Sink
	publisher     messaging.Publisher
	clock         Clock
	insertTimeout time.Duration
	logger        *logging.Logger

	stats      Stats
	statsMutex sync.RWMutex
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithPublisher announces every stored document on
// messaging.SubjectMessagesStored.
func WithPublisher(p messaging.Publisher) Option {
	return func(i *Ingestor) { i.publisher = p }
}

func WithClock(c Clock) Option {
	return func(i *Ingestor) { i.clock = c }
}

func WithInsertTimeout(d time.Duration) Option {
	return func(i *Ingestor) {
		if d > 0 {
			i.insertTimeout = d
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(i *Ingestor) {
		if l != nil {
			i.logger = l
		}
	}
}

func NewIngestor(sink storage.Sink, opts ...Option) *Ingestor {
	i := &Ingestor{
		sink:          sink,
		publisher:     messaging.NoopPublisher{},
		clock:         NewMonotonicClock(),
		insertTimeout: DefaultInsertTimeout,
		logger:        logging.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest decodes raw, stamps it with received_at and inserts it. The
// returned error is a *MalformedPayloadError or *PersistenceError; it has
// already been logged and counted, callers only need it for tests.
func (i *Ingestor) Ingest(ctx context.Context, raw []byte, remote string) error {
	metrics.PayloadBytesTotal.Add(float64(len(raw)))

	rec, err := models.DecodePayload(raw)
	if err != nil {
		malformed := &MalformedPayloadError{Raw: raw, Err: err}
		i.logger.WarnContext(ctx, "discarding malformed payload",
			logging.Remote(remote),
			logging.Bytes(len(raw)),
			logging.Raw(raw, rawLogLimit),
			logging.Error(err),
		)
		i.record(OutcomeMalformed, len(raw))
		return malformed
	}

	rec = rec.WithReceivedAt(i.clock.Now())

	insertCtx, cancel := context.WithTimeout(ctx, i.insertTimeout)
	defer cancel()

	start := time.Now()
	err = i.sink.Insert(insertCtx, rec)
	elapsed := time.Since(start)
	metrics.InsertDuration.WithLabelValues(i.sink.Name()).Observe(elapsed.Seconds())

	if err != nil {
		persistErr := &PersistenceError{Sink: i.sink.Name(), Err: err}
		i.logger.ErrorContext(ctx, "failed to persist record",
			logging.Remote(remote),
			logging.Sink(i.sink.Name()),
			logging.Username(rec.Username()),
			logging.Duration(elapsed),
			logging.Error(err),
		)
		i.record(OutcomePersistFailed, len(raw))
		return persistErr
	}

	i.logger.InfoContext(ctx, "record stored",
		logging.Remote(remote),
		logging.Sink(i.sink.Name()),
		logging.Username(rec.Username()),
		logging.Bytes(len(raw)),
		logging.Duration(elapsed),
	)
	i.record(OutcomeStored, len(raw))
	i.notify(ctx, rec)
	return nil
}

// notify is fire-and-forget: a failed publish is logged and never affects
// the stored record.
func (i *Ingestor) notify(ctx context.Context, rec models.Record) {
	err := messaging.PublishJSON(ctx, i.publisher, messaging.SubjectMessagesStored, rec.Document())
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	metrics.NotifyErrors.Inc()
	i.logger.WarnContext(ctx, "failed to publish stored message notification",
		logging.Error(err),
	)
}

func (i *Ingestor) SinkName() string {
	return i.sink.Name()
}

func (i *Ingestor) GetStats() Stats {
	i.statsMutex.RLock()
	defer i.statsMutex.RUnlock()
	return i.stats
}

func (i *Ingestor) record(outcome string, size int) {
	metrics.PayloadsTotal.WithLabelValues(outcome).Inc()

	i.statsMutex.Lock()
	defer i.statsMutex.Unlock()

	i.stats.TotalPayloads++
	i.stats.TotalBytes += int64(size)
	switch outcome {
	case OutcomeStored:
		i.stats.Stored++
		i.stats.LastStored = time.Now()
	case OutcomeMalformed:
		i.stats.Malformed++
	case OutcomePersistFailed:
		i.stats.PersistFailed++
	}
}
