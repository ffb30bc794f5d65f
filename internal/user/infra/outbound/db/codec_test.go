package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/migrations"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlbuilder"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
	"github.com/davicafu/crudlab/internal/user/domain"
)

func setup(t *testing.T) (*schema.Registry, *sqlstore.Store[domain.User]) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db, "sqlite"))

	b := schema.NewBuilder()
	domain.DeclareSchema(b)
	reg, err := b.Build()
	require.NoError(t, err)
	return reg, sqlstore.New(db, sqlbuilder.SQLite, Binding(reg))
}

func created(u *domain.User) sharedDomain.OutboxEvent {
	return sharedDomain.NewOutboxEvent(domain.RecordType, sharedDomain.ActionCreated, u.ID.String(), u)
}

func TestCodec_RoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	_, users := setup(t)

	birth := time.Date(1990, 3, 4, 0, 0, 0, 0, time.UTC)
	boss := &domain.User{ID: uuid.New(), Email: "boss@acme.io", Name: "Jean", Status: domain.StatusActive, CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	u := &domain.User{
		ID: uuid.New(), Email: "ana@acme.io", Name: "Ana", FirstName: "Ana María",
		Status: domain.StatusInactive, BirthDate: &birth,
		CreatedAt: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC), ManagerID: &boss.ID,
	}
	require.NoError(t, users.Insert(ctx, boss, created(boss)))
	require.NoError(t, users.Insert(ctx, u, created(u)))

	got, err := users.GetByID(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Ana María", got.FirstName)
	assert.Equal(t, domain.StatusInactive, got.Status)
	require.NotNil(t, got.BirthDate)
	assert.True(t, birth.Equal(*got.BirthDate))
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.ManagerID)
	assert.Equal(t, boss.ID, *got.ManagerID)
	assert.Equal(t, int64(1), got.Version)

	root, err := users.GetByID(ctx, boss.ID.String())
	require.NoError(t, err)
	assert.Empty(t, root.FirstName)
	assert.Nil(t, root.BirthDate)
	assert.Nil(t, root.ManagerID)
}

func TestCodec_FilterThroughManagerRelation(t *testing.T) {
	ctx := context.Background()
	reg, users := setup(t)

	boss := &domain.User{ID: uuid.New(), Email: "boss@acme.io", Name: "Jean", Status: domain.StatusActive, CreatedAt: time.Now().UTC()}
	require.NoError(t, users.Insert(ctx, boss, created(boss)))
	for _, name := range []string{"Ana", "Luis"} {
		u := &domain.User{ID: uuid.New(), Email: name + "@acme.io", Name: name, Status: domain.StatusActive, CreatedAt: time.Now().UTC(), ManagerID: &boss.ID}
		require.NoError(t, users.Insert(ctx, u, created(u)))
	}

	c := query.NewCompiler(reg)
	spec, err := c.Build(domain.RecordType, sharedDomain.NewFilterRequest(0, 10).
		Where(domain.ManagerNameCriteria{Name: "Jea"}, domain.ManagerNameCriteria{Name: "ean"}).
		SortBy("name", false))
	require.NoError(t, err)
	// la relación repetida reutiliza el mismo join
	assert.Len(t, spec.Joins, 1)
	found, err := users.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Luis", found[0].Name)
	assert.Equal(t, "Ana", found[1].Name)

	_, err = c.BuildCount(domain.RecordType, sharedDomain.NewFilterRequest(0, 10).
		Where(sharedDomain.Where("managerId", sharedDomain.OpBlank, nil)))
	require.Error(t, err, "BLANK sólo aplica a campos de texto")
	assert.True(t, sharedDomain.IsQueryError(err))

	sel, err := c.BuildCount(domain.RecordType, sharedDomain.NewFilterRequest(0, 10).
		Where(domain.StatusCriteria{Statuses: []domain.UserStatus{domain.StatusActive}}))
	require.NoError(t, err)
	n, err := users.Count(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDocCodec(t *testing.T) {
	manager := uuid.New()
	u := &domain.User{ID: uuid.New(), Email: "a@b.c", Name: "Ana", Status: domain.StatusActive, ManagerID: &manager, Version: 3}

	doc := ToDoc(u)
	assert.Equal(t, u.ID.String(), doc.ID)
	assert.Nil(t, doc.FirstName)
	require.NotNil(t, doc.ManagerID)
	assert.Equal(t, manager.String(), *doc.ManagerID)

	back := FromDoc(doc)
	assert.Equal(t, u.ID, back.ID)
	assert.Equal(t, &manager, back.ManagerID)
	assert.Equal(t, int64(3), back.Version)
}
