// Package resolver turns oracle replies into ranked candidates and falls back
// to static keyword tables whenever the oracle cannot be trusted.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimeout bounds one oracle call.
const DefaultTimeout = 10 * time.Second

// Source selects where candidates come from.
type Source int

const (
	// SourceOracle asks the oracle and falls back on failure.
	SourceOracle Source = iota
	// SourceStatic goes straight to the fallback table.
	SourceStatic
)

// Reason explains a fallback.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "oracle_timeout"
	ReasonMalformed   Reason = "oracle_malformed"
	ReasonUnavailable Reason = "oracle_unavailable"
	ReasonStatic      Reason = "static"
)

// Decoder converts one reply element into a candidate. ok is false for
// elements missing required fields.
type Decoder func(raw json.RawMessage) (c domain.Candidate, ok bool)

// Request describes one resolution.
type Request struct {
	// Operation labels logs, metrics and spans, e.g. "discover.tiktok".
	Operation string
	Prompt    string
	Source    Source
	Decode    Decoder
	Fallback  Table
	// Subject is matched against Fallback keywords, usually the product category.
	Subject string
}

// Result holds ranked candidates and how they were obtained.
type Result struct {
	Candidates []domain.Candidate
	Fallback   bool
	Reason     Reason
}

// Resolver is safe for concurrent use.
type Resolver struct {
	oracle    oracle.Client
	timeout   time.Duration
	log       logger.Logger
	telemetry *telemetry.Provider
}

// New creates a Resolver. tel may be nil.
func New(client oracle.Client, timeout time.Duration, log logger.Logger, tel *telemetry.Provider) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		oracle:    client,
		timeout:   timeout,
		log:       log.With(logger.String("component", "resolver")),
		telemetry: tel,
	}
}

// Resolve returns ranked candidates. The only error it returns is the
// caller's own cancellation; every oracle failure falls back.
func (r *Resolver) Resolve(ctx context.Context, req Request) (result Result, err error) {
	ctx, span := r.telemetry.StartSpan(ctx, "resolver.resolve",
		attribute.String("resolver.operation", req.Operation),
	)
	defer func() {
		span.SetAttributes(
			attribute.Bool("resolver.fallback", result.Fallback),
			attribute.String("resolver.reason", string(result.Reason)),
			attribute.Int("resolver.candidates", len(result.Candidates)),
		)
		telemetry.EndSpan(span, err)
	}()

	if req.Source == SourceStatic {
		return r.fallback(req, ReasonStatic, nil), nil
	}

	raw, invokeErr := r.oracle.Invoke(ctx, req.Prompt, r.timeout)
	if invokeErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return r.fallback(req, reasonFor(invokeErr), invokeErr), nil
	}

	elems, parseErr := ExtractArray(raw)
	if parseErr != nil {
		return r.fallback(req, ReasonMalformed, parseErr), nil
	}

	candidates := make([]domain.Candidate, 0, len(elems))
	for _, elem := range elems {
		if c, ok := req.Decode(elem); ok {
			candidates = append(candidates, c)
		}
	}
	if len(elems) > 0 && len(candidates) == 0 {
		return r.fallback(req, ReasonMalformed, oracle.ErrMalformedResponse), nil
	}

	r.log.Debug("Oracle candidates resolved",
		logger.String("operation", req.Operation),
		logger.Int("elements", len(elems)),
		logger.Int("candidates", len(candidates)),
	)
	return Result{Candidates: Rank(candidates)}, nil
}

func (r *Resolver) fallback(req Request, reason Reason, cause error) Result {
	r.telemetry.RecordFallback(req.Operation, string(reason))

	fields := []logger.Field{
		logger.String("operation", req.Operation),
		logger.String("reason", string(reason)),
		logger.String("subject", req.Subject),
	}
	if cause != nil {
		fields = append(fields, logger.Error(cause))
		r.log.Warn("Using fallback table", fields...)
	} else {
		r.log.Debug("Using fallback table", fields...)
	}

	return Result{
		Candidates: Rank([]domain.Candidate{req.Fallback.Match(req.Subject)}),
		Fallback:   true,
		Reason:     reason,
	}
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, oracle.ErrTimeout):
		return ReasonTimeout
	case errors.Is(err, oracle.ErrMalformedResponse):
		return ReasonMalformed
	default:
		return ReasonUnavailable
	}
}
