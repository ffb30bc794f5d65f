package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	sharedHTTP "github.com/davicafu/crudlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/memstore"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
	"github.com/davicafu/crudlab/internal/task/application"
	"github.com/davicafu/crudlab/internal/task/domain"
	taskDB "github.com/davicafu/crudlab/internal/task/infra/outbound/db"
	userDomain "github.com/davicafu/crudlab/internal/user/domain"
	userDB "github.com/davicafu/crudlab/internal/user/infra/outbound/db"
)

type fixture struct {
	router *gin.Engine
	users  *memstore.Store[userDomain.User]
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := schema.NewBuilder()
	userDomain.DeclareSchema(b)
	domain.DeclareSchema(b)
	reg, err := b.Build()
	require.NoError(t, err)

	db := memstore.NewDB()
	binding := taskDB.Binding(reg)
	registry := sharedApp.NewRegistry()
	application.Register(registry, validator.New(), nil)

	next := int64(0)
	crud, err := sharedApp.NewCrudService(sharedApp.Deps[application.TaskRecord, domain.Task]{
		Binding:  binding,
		Repo:     memstore.New(db, binding),
		Mapper:   application.Mapper(),
		Compiler: query.NewCompiler(reg),
		Registry: registry,
		IDs: sharedApp.NewIDGenerator(domain.Identity(), func() string {
			next++
			return strconv.FormatInt(next, 10)
		}),
	})
	require.NoError(t, err)

	r := gin.New()
	RegisterTaskRoutes(r, application.NewTaskService(crud, nil))
	return fixture{router: r, users: memstore.New(db, userDB.Binding(reg))}
}

func (f fixture) addUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &userDomain.User{ID: uuid.New(), Email: name + "@example.com", Name: name, Status: userDomain.StatusActive, CreatedAt: time.Now().UTC()}
	evt := sharedDomain.NewOutboxEvent(userDomain.RecordType, sharedDomain.ActionCreated, u.ID.String(), u)
	require.NoError(t, f.users.Insert(context.Background(), u, evt))
	return u.ID
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestTaskRoutes_LifecycleAndQueries(t *testing.T) {
	f := newFixture(t)
	ana := f.addUser(t, "Ana")

	w := f.do(http.MethodPost, "/tasks", `{"title":"review","assigneeId":"`+ana.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	task := decode[application.TaskRecord](t, w)
	assert.Equal(t, "1", task.ID)

	w = f.do(http.MethodPost, "/tasks", `{"title":"orphan"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodGet, "/tasks/assignee/"+ana.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.TaskRecord](t, w), 1)

	w = f.do(http.MethodPost, "/tasks/"+task.ID+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.TaskCompleted), decode[application.TaskRecord](t, w).Status)

	w = f.do(http.MethodGet, "/tasks/assignee/"+ana.String()+"?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.TaskRecord](t, w), 1)

	w = f.do(http.MethodGet, "/tasks/search?assignee=An", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.TaskRecord](t, w), 1)

	w = f.do(http.MethodGet, "/tasks/search", "")
	require.Equal(t, http.StatusOK, w.Code)
	unassigned := decode[[]application.TaskRecord](t, w)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "orphan", unassigned[0].Title)

	w = f.do(http.MethodPost, "/tasks/"+unassigned[0].ID+"/fail", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/tasks/filter", `{"andCriteria":[{"key":"assignee.name","operation":"EQUAL","value":"Ana"}],"pageSize":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	var page sharedHTTP.Page[application.TaskRecord]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, task.ID, page.Data[0].ID)
}

func TestTaskRoutes_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/tasks/99/complete", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/tasks/assignee/nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/tasks/assignee/"+uuid.NewString()+"?status=failed", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/tasks/search?page=x", "").Code)

	// una tarea sin responsable no puede completarse
	w := f.do(http.MethodPost, "/tasks", `{"title":"solo"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[application.TaskRecord](t, w).ID
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/tasks/"+id+"/complete", "").Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/tasks", `{"title":"","status":"done"}`).Code)
}
