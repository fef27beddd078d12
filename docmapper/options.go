package docmapper

// Option defines a functional option for configuring a Template.
type Option[T any] func(*Template[T]) error

// WithScope sets the scope name the Template resolves collections in.
func WithScope[T any](scopeName string) Option[T] {
	return func(t *Template[T]) error {
		if scopeName == "" {
			return ErrEmptyScopeName
		}

		t.scopeName = scopeName

		return nil
	}
}

// WithCollection sets the collection name the Template operates on.
func WithCollection[T any](collectionName string) Option[T] {
	return func(t *Template[T]) error {
		if collectionName == "" {
			return ErrEmptyCollectionName
		}

		t.collectionName = collectionName

		return nil
	}
}

// WithTransactionalExecutor sets the executor used for operations issued
// inside an active transaction. Without one, such operations fail with
// ErrNoTransactionalExecutor.
func WithTransactionalExecutor[T any](executor TransactionalExecutor) Option[T] {
	return func(t *Template[T]) error {
		t.txExecutor = executor
		return nil
	}
}

// WithTransactionContextProvider replaces the default provider which reads
// the ambient TransactionContext from the context.
func WithTransactionContextProvider[T any](provider TransactionContextProvider) Option[T] {
	return func(t *Template[T]) error {
		t.txProvider = provider
		return nil
	}
}

// WithTranslation replaces the default JSON translation service.
func WithTranslation[T any](translation TranslationService) Option[T] {
	return func(t *Template[T]) error {
		t.translation = translation
		return nil
	}
}

// WithTransactionResultRegistry shares a transaction-result registry between
// several Templates participating in the same transactions.
func WithTransactionResultRegistry[T any](registry *TransactionResultRegistry) Option[T] {
	return func(t *Template[T]) error {
		t.registry = registry
		return nil
	}
}

// WithLogger sets the logger for the Template.
//
// Info level: operation outcomes, version conflicts (production-safe)
// Error level: failures that cause operation failures.
func WithLogger[T any](logger Logger) Option[T] {
	return func(t *Template[T]) error {
		t.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Template. The
// contextual logger receives log messages with context information including
// automatic trace/span correlation when tracing is enabled.
func WithContextualLogger[T any](logger ContextualLogger) Option[T] {
	return func(t *Template[T]) error {
		t.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Template. It receives
// operation durations, error counts, and version conflict counts.
func WithMetrics[T any](collector MetricsCollector) Option[T] {
	return func(t *Template[T]) error {
		t.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Template. It receives span
// creation for every dispatched operation, context propagation, and error
// tracking.
func WithTracing[T any](collector TracingCollector) Option[T] {
	return func(t *Template[T]) error {
		t.tracingCollector = collector
		return nil
	}
}

// WithBeforeConvertHook registers a before-convert lifecycle hook.
func WithBeforeConvertHook[T any](hook BeforeConvertHook[T]) Option[T] {
	return func(t *Template[T]) error {
		t.hooks.OnBeforeConvert(hook)
		return nil
	}
}

// WithAfterConvertHook registers an after-convert lifecycle hook.
func WithAfterConvertHook[T any](hook AfterConvertHook[T]) Option[T] {
	return func(t *Template[T]) error {
		t.hooks.OnAfterConvert(hook)
		return nil
	}
}

// WithBeforeSaveHook registers a before-save lifecycle hook.
func WithBeforeSaveHook[T any](hook BeforeSaveHook[T]) Option[T] {
	return func(t *Template[T]) error {
		t.hooks.OnBeforeSave(hook)
		return nil
	}
}

// WithAfterSaveHook registers an after-save lifecycle hook.
func WithAfterSaveHook[T any](hook AfterSaveHook[T]) Option[T] {
	return func(t *Template[T]) error {
		t.hooks.OnAfterSave(hook)
		return nil
	}
}
