// Command docmapper-demo wires the document mapping layer to a local Postgres
// database and runs a small lifecycle: save, read, modify, save again inside a
// transaction, and remove.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
	"github.com/lacinoire/spring-data-couchbase/docmapper/postgresengine"
	"github.com/lacinoire/spring-data-couchbase/example/shared/core"
	"github.com/lacinoire/spring-data-couchbase/example/shared/shell/config"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pool, poolErr := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolConfig())
	if poolErr != nil {
		log.Fatal("Failed to create connection pool, error: ", poolErr)
	}
	defer pool.Close()

	engine, engineErr := postgresengine.NewEngineFromPGXPool(pool)
	if engineErr != nil {
		log.Fatal("Failed to create storage engine, error: ", engineErr)
	}

	template, templateErr := docmapper.NewTemplate(
		core.UserDescriptor(),
		engine,
		engine,
		docmapper.WithScope[*core.User]("app"),
		docmapper.WithCollection[*core.User]("users"),
		docmapper.WithTransactionalExecutor[*core.User](engine),
	)
	if templateErr != nil {
		log.Fatal("Failed to create mapping template, error: ", templateErr)
	}

	user := core.NewUser("ada@example.com", "Ada", 36)

	saved, saveErr := template.Save(ctx, user)
	if saveErr != nil {
		log.Fatal("Failed to save user, error: ", saveErr)
	}
	logger.Info("saved user", "id", saved.ID, "version", saved.Version)

	found, findErr := template.FindByID(ctx, saved.ID)
	if findErr != nil {
		log.Fatal("Failed to find user, error: ", findErr)
	}
	logger.Info("found user", "name", found.Name, "version", found.Version)

	// The non-zero version token makes this save a conditional replace.
	found.Age = 37
	replaced, replaceErr := template.Save(ctx, found)
	if replaceErr != nil {
		log.Fatal("Failed to replace user, error: ", replaceErr)
	}
	logger.Info("replaced user", "version", replaced.Version)

	// Inside a transaction a zero-version save turns into an insert.
	txErr := engine.WithinTransaction(ctx, func(ctx context.Context) error {
		colleague := core.NewUser("grace@example.com", "Grace", 45)

		inserted, insertErr := template.Save(ctx, colleague)
		if insertErr != nil {
			return insertErr
		}
		logger.Info("inserted user in transaction", "id", inserted.ID, "version", inserted.Version)

		return template.Remove(ctx, inserted)
	})
	if txErr != nil {
		log.Fatal("Transaction failed, error: ", txErr)
	}

	if removeErr := template.Remove(ctx, replaced); removeErr != nil {
		log.Fatal("Failed to remove user, error: ", removeErr)
	}
	logger.Info("removed user", "id", replaced.ID)
}
