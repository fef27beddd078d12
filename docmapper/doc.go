// Package docmapper provides the core abstractions for mapping typed
// application entities onto versioned documents in a document database.
//
// This package defines the generic Document representation, per-type
// entity descriptors, the entity codec, optimistic-concurrency version
// tracking, lifecycle hooks, and the operation dispatcher (Template)
// which routes every operation through a transactional or
// non-transactional executor.
//
// The package is storage agnostic: it talks to the database only through
// the narrow CollectionResolver, Executor and TransactionalExecutor
// interfaces. A reference implementation backed by Postgres lives in the
// postgresengine subpackage.
//
// Key types:
//   - Document: ordered field mapping with an explicit identifier attribute
//   - EntityDescriptor: caller-supplied accessors for id / version / tx-result fields
//   - Codec: converts between typed entities and Documents
//   - Template: dispatches save / find / remove / exists operations
//
// Common usage pattern:
//
//	descriptor := docmapper.EntityDescriptor[*User]{
//		TypeName:     "User",
//		New:          func() *User { return &User{} },
//		IDField:      "id",
//		GetID:        func(u *User) string { return u.ID },
//		SetID:        func(u *User, id string) { u.ID = id },
//		VersionField: "version",
//		GetVersion:   func(u *User) int64 { return u.Version },
//		SetVersion:   func(u *User, v int64) { u.Version = v },
//	}
//
//	template, err := docmapper.NewTemplate(descriptor, engine, engine,
//		docmapper.WithScope[*User]("tenant_a"),
//		docmapper.WithCollection[*User]("users"),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	saved, err := template.Save(ctx, &User{ID: "u1", Name: "Ann"})
package docmapper
