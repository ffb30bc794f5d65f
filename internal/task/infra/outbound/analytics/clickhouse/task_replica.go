// Package clickhouse define la réplica analítica de tasks: la tabla en ClickHouse y el Finder que
// atiende Filter y Count cuando está configurada.
package clickhouse

import (
	"database/sql"

	sharedCH "github.com/davicafu/crudlab/internal/shared/infra/analytics/clickhouse"
	"github.com/davicafu/crudlab/internal/shared/schema"
	"github.com/davicafu/crudlab/internal/task/domain"
	taskDB "github.com/davicafu/crudlab/internal/task/infra/outbound/db"
)

// TasksDDL: las columnas siguen domain.DeclareSchema. La tabla se ordena por los campos de
// consulta habituales.
const TasksDDL = `
	CREATE TABLE IF NOT EXISTS tasks (
		id          Int64,
		title       String,
		description Nullable(String),
		status      String,
		assignee_id Nullable(String),
		created_at  DateTime64(3, 'UTC'),
		updated_at  DateTime64(3, 'UTC'),
		version     Int64
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(created_at)
	ORDER BY (status, id)`

// NewTaskReplica devuelve el Finder de tasks sobre ClickHouse.
func NewTaskReplica(db *sql.DB, reg *schema.Registry) *sharedCH.Finder[domain.Task] {
	return sharedCH.NewFinder(db, taskDB.Binding(reg))
}
