package repomanager

import (
	"context"
	"database/sql"

	"github.com/avezhnov/ctfdeck/internal/dbx"
	"github.com/avezhnov/ctfdeck/internal/server/repositories/refreshtokens"
	"github.com/avezhnov/ctfdeck/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository either on a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
