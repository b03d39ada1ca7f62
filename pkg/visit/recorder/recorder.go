package recorder

import (
	"context"
	"log/slog"
	"time"

	"beacon-hq/beacon/pkg/limits/ratelimit"
	"beacon-hq/beacon/pkg/telemetry/metrics"
	"beacon-hq/beacon/pkg/visit"
	"beacon-hq/beacon/pkg/visit/validate"
)

// Recorder orchestrates the write path: admission, validation, then
// insert. Recording is synchronous because every outcome (denied,
// invalid, stored) must be surfaced to the caller.
type Recorder struct {
	storage   visit.Storage
	limiter   *ratelimit.Limiter
	collector *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithClock substitutes the clock used to default recordedAt. For tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithMetrics attaches a metrics collector. A nil collector records
// nothing.
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Recorder) { r.collector = collector }
}

// NewRecorder creates a recorder over the given storage backend and
// admission limiter.
func NewRecorder(storage visit.Storage, limiter *ratelimit.Limiter, opts ...Option) *Recorder {
	r := &Recorder{
		storage: storage,
		limiter: limiter,
		logger:  slog.Default().With("component", "visit.recorder"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record admits, validates, and stores one visit. clientIP is the
// admitting network identity from the transport layer; payload is the
// untyped client-reported fingerprint.
//
// Admission is checked first, independent of validation's outcome: an
// invalid payload still consumes an admission slot. A denied or invalid
// write never reaches storage. On success the returned visit carries the
// assigned id.
func (r *Recorder) Record(ctx context.Context, clientIP string, payload map[string]any) (*visit.Visit, error) {
	if !r.limiter.Allow(clientIP) {
		r.collector.RecordRejected(metrics.ReasonAdmission)
		r.logger.Debug("visit denied by admission limiter", "client_ip", clientIP)
		return nil, &visit.AdmissionDeniedError{
			Key:        clientIP,
			RetryAfter: r.limiter.Window(),
		}
	}
	r.collector.SetLimiterKeys(r.limiter.Keys())

	v, fieldErrs := validate.Validate(payload, clientIP, r.now())
	if len(fieldErrs) > 0 {
		r.collector.RecordRejected(metrics.ReasonValidation)
		r.logger.Debug("visit failed validation",
			"client_ip", clientIP,
			"violations", len(fieldErrs),
		)
		return nil, visit.NewValidationError(fieldErrs)
	}

	id, err := r.storage.Insert(ctx, v)
	if err != nil {
		r.collector.RecordRejected(metrics.ReasonStorage)
		r.logger.Error("visit insert failed", "client_ip", clientIP, "error", err)
		return nil, err
	}
	v.ID = id

	r.collector.RecordIngested()
	r.logger.Debug("visit recorded", "id", id, "client_ip", clientIP)

	return v, nil
}
