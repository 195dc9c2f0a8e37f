// Package repomanager vends the backend repositories bound to a database
// handle or a transaction, and owns the schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/SecurityWorks/ente/internal/dbx"
	"github.com/SecurityWorks/ente/internal/server/repositories/files"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
}
