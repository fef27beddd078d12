// Package adapters wraps the supported database client libraries (pgx,
// database/sql, sqlx) behind the narrow DBAdapter interface the document
// engine depends on, including transaction support.
package adapters
