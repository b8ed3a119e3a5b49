package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/audit"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/clients"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/packages"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/reservations"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so one transaction
// can span several of them.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Packages(db dbx.DBTX) packages.Repository
	Clients(db dbx.DBTX) clients.Repository
	Reservations(db dbx.DBTX) reservations.Repository
	Audit(db dbx.DBTX) audit.Repository
}
