// Package services implements the business operations behind the API: the
// registration engine, the event catalog, the admin aggregator, accounts,
// registration export and event image uploads. Services talk to storage
// only through repomanager.Store.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

var tracer = otel.Tracer("github.com/dmitrijs2005/eventhub/internal/server/services")

// Clock yields the current time.
type Clock func() time.Time

// Notifier receives committed registration changes.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Notification) error { return nil }

// stamp returns now in UTC at the microsecond precision every backend keeps.
func stamp(c Clock) time.Time {
	return c().UTC().Truncate(time.Microsecond)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// hideInternal passes business errors and context cancellation through
// unchanged. Anything else is logged with its cause and replaced by
// common.ErrorInternal.
func hideInternal(ctx context.Context, log logging.Logger, op string, err error) error {
	if err == nil || common.IsBusiness(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debug(ctx, op+" interrupted", "error", err)
		return err
	}
	log.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}

func orNop(log logging.Logger) logging.Logger {
	if log == nil {
		return logging.Nop()
	}
	return log
}
