package docmapper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// logError logs error information at the error level if a logger is configured.
func (t *Template[T]) logError(message string, err error, args ...any) {
	if t.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		t.logger.Error(message, allArgs...)
	}
}

// logErrorContext logs error information with context correlation.
func (t *Template[T]) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	if t.contextualLogger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		t.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (t *Template[T]) logOperation(action string, args ...any) {
	if t.logger != nil {
		t.logger.Info(logMsgOperation+action, args...)
	}
}

// logOperationContext logs operational information with context correlation.
func (t *Template[T]) logOperationContext(ctx context.Context, action string, args ...any) {
	if t.contextualLogger != nil {
		t.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (t *Template[T]) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetricsContext records duration metrics, using the
// context-aware collector methods when available.
func (t *Template[T]) recordDurationMetricsContext(
	ctx context.Context,
	duration time.Duration,
	operation, status string,
) {
	if t.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          status,
	}

	if contextualCollector, ok := t.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
	} else {
		t.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
	}
}

// recordErrorMetricsContext records error metrics, using the context-aware
// collector methods when available.
func (t *Template[T]) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if t.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := t.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricOperationErrors, labels)
	} else {
		t.metricsCollector.IncrementCounter(metricOperationErrors, labels)
	}
}

// recordVersionConflictMetrics records version conflict metrics if a collector is configured.
func (t *Template[T]) recordVersionConflictMetrics(operation string) {
	if t.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"conflict_type":   "version",
		}
		t.metricsCollector.IncrementCounter(metricVersionConflicts, labels)
	}
}

// operationObserver bundles the tracing span, metrics, and log lifecycle of
// one dispatched operation.
type operationObserver[T any] struct {
	t             *Template[T]
	ctx           context.Context
	op            OpKind
	id            string
	transactional bool
	span          SpanContext
	start         time.Time
}

// startOperation creates an observer for one operation, opening a tracing
// span if a tracing collector is configured.
func (t *Template[T]) startOperation(
	ctx context.Context,
	op OpKind,
	id string,
	transactional bool,
) (*operationObserver[T], context.Context) {

	observer := &operationObserver[T]{
		t:             t,
		op:            op,
		id:            id,
		transactional: transactional,
		start:         time.Now(),
	}

	if t.tracingCollector != nil {
		spanAttrs := map[string]string{
			spanAttrOperation:     op.String(),
			spanAttrDocumentID:    id,
			spanAttrEntityType:    t.codec.Descriptor().TypeName,
			spanAttrTransactional: strconv.FormatBool(transactional),
		}

		ctx, observer.span = t.tracingCollector.StartSpan(ctx, spanNamePrefix+op.String(), spanAttrs)
	}

	observer.ctx = ctx

	return observer, ctx
}

// finishSuccess completes the observer for a successful operation.
func (o *operationObserver[T]) finishSuccess(newVersion VersionTokenInt64) {
	duration := time.Since(o.start)

	o.t.recordDurationMetricsContext(o.ctx, duration, o.op.String(), statusSuccess)

	if o.span != nil {
		o.span.SetStatus(statusSuccess)
		o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", o.t.toMilliseconds(duration)))
		o.t.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
			spanAttrDocumentID: o.id,
		})
	}

	o.t.logOperation(
		o.op.String(),
		logAttrDocumentID, o.id,
		logAttrNewVersion, newVersion,
		logAttrTransactional, o.transactional,
		logAttrDurationMS, o.t.toMilliseconds(duration),
	)
	o.t.logOperationContext(
		o.ctx,
		o.op.String(),
		logAttrDocumentID, o.id,
		logAttrNewVersion, newVersion,
		logAttrTransactional, o.transactional,
		logAttrDurationMS, o.t.toMilliseconds(duration),
	)
}

// finishError completes the observer for a failed operation, classifying the
// error for metrics and span attributes.
func (o *operationObserver[T]) finishError(err error) {
	duration := time.Since(o.start)
	errorType := classifyError(err)

	o.t.recordDurationMetricsContext(o.ctx, duration, o.op.String(), statusError)
	o.t.recordErrorMetricsContext(o.ctx, o.op.String(), errorType)

	if errorType == errorTypeVersionConflict {
		o.t.recordVersionConflictMetrics(o.op.String())
		o.t.logOperation(logMsgVersionConflict, logAttrOperation, o.op.String(), logAttrDocumentID, o.id)
	}

	if o.span != nil {
		o.span.SetStatus(statusError)
		o.span.AddAttribute(spanAttrErrorType, errorType)
		o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", o.t.toMilliseconds(duration)))
		o.t.tracingCollector.FinishSpan(o.span, statusError, map[string]string{
			spanAttrErrorType: errorType,
		})
	}

	o.t.logError(logMsgExecutorFailed, err, logAttrOperation, o.op.String(), logAttrDocumentID, o.id)
	o.t.logErrorContext(o.ctx, logMsgExecutorFailed, err, logAttrOperation, o.op.String(), logAttrDocumentID, o.id)
}

// classifyError maps an error to its metric / span error type.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case errors.Is(err, ErrVersionConflict):
		return errorTypeVersionConflict
	case errors.Is(err, ErrTransactionConflict):
		return errorTypeTransactionConflict
	case errors.Is(err, ErrMappingFailed):
		return errorTypeMapping
	case errors.Is(err, ErrDecodeFailed):
		return errorTypeDecode
	default:
		return errorTypeStorage
	}
}
