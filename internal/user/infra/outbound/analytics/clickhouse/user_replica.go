// Package clickhouse define la réplica analítica de users. Se replica también para resolver la
// relación assignee de tasks dentro de ClickHouse.
package clickhouse

import (
	"database/sql"

	sharedCH "github.com/davicafu/crudlab/internal/shared/infra/analytics/clickhouse"
	"github.com/davicafu/crudlab/internal/shared/schema"
	"github.com/davicafu/crudlab/internal/user/domain"
	userDB "github.com/davicafu/crudlab/internal/user/infra/outbound/db"
)

const UsersDDL = `
	CREATE TABLE IF NOT EXISTS users (
		id         String,
		email      String,
		name       String,
		first_name Nullable(String),
		status     String,
		birth_date Nullable(DateTime64(3, 'UTC')),
		created_at DateTime64(3, 'UTC'),
		manager_id Nullable(String),
		version    Int64
	) ENGINE = MergeTree()
	ORDER BY id`

func NewUserReplica(db *sql.DB, reg *schema.Registry) *sharedCH.Finder[domain.User] {
	return sharedCH.NewFinder(db, userDB.Binding(reg))
}
