// Package postgresengine provides a Postgres-backed reference implementation
// of the docmapper collaborator interfaces: CollectionResolver, Executor, and
// TransactionalExecutor.
//
// Documents are stored as jsonb rows in a single table keyed by scope,
// collection and document id, with a bigint version column serving as the
// CAS token: every successful write increments it, conditional writes compare
// it. A catalog table lists the known scope/collection pairs.
//
// The engine supports pgx connection pools, database/sql connections, and
// sqlx connections through internal adapters:
//
//	engine, err := postgresengine.NewEngineFromPGXPool(pool)
//	if err != nil {
//		// handle error
//	}
//
//	template, err := docmapper.NewTemplate(descriptor, engine, engine,
//		docmapper.WithTransactionalExecutor[*User](engine),
//	)
package postgresengine
