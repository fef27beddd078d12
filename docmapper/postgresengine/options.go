package postgresengine

import (
	"github.com/lacinoire/spring-data-couchbase/docmapper"
)

// Option defines a function that configures an Engine.
type Option func(*Engine) error

// WithTableName sets a custom document table name.
func WithTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		e.documentTableName = tableName

		return nil
	}
}

// WithCatalogTableName sets a custom collection catalog table name.
func WithCatalogTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		e.catalogTableName = tableName

		return nil
	}
}

// WithTableNames sets custom document and catalog table names in one call.
func WithTableNames(documentTableName string, catalogTableName string) Option {
	return func(e *Engine) error {
		if documentTableName == "" || catalogTableName == "" {
			return ErrEmptyTableName
		}

		e.documentTableName = documentTableName
		e.catalogTableName = catalogTableName

		return nil
	}
}

// WithLogger adds a logger to the engine for query and error logging.
func WithLogger(logger docmapper.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger

		return nil
	}
}
