package relayer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/memstore"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

type userCodec struct{}

func (userCodec) Values(u *userCreated) []any { return []any{u.ID, u.Email} }

func (userCodec) Scan(schema.Scanner) (*userCreated, error) { return nil, nil }

func newUserStore(t *testing.T, db *memstore.DB) *memstore.Store[userCreated] {
	t.Helper()
	b := schema.NewBuilder()
	b.Entity("user", "users").
		ID("id", "id", schema.KindString).
		Field("email", "email", schema.KindString)
	reg, err := b.Build()
	require.NoError(t, err)

	return memstore.New(db, schema.Binding[userCreated]{
		Type: reg.MustLookup("user"),
		Identity: schema.Identity[userCreated]{
			GetID: func(u *userCreated) string { return u.ID },
			SetID: func(u *userCreated, id string) { u.ID = id },
		},
		Codec: userCodec{},
	})
}
