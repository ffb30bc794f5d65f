package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

type noteRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version int64  `json:"version"`
}

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) Save(ctx context.Context, d noteRecord) (noteRecord, error) {
	args := m.Called(d)
	return args.Get(0).(noteRecord), args.Error(1)
}

func (m *serviceMock) Update(ctx context.Context, d noteRecord) (noteRecord, error) {
	args := m.Called(d)
	return args.Get(0).(noteRecord), args.Error(1)
}

func (m *serviceMock) Find(ctx context.Context, id string) (noteRecord, bool, error) {
	args := m.Called(id)
	return args.Get(0).(noteRecord), args.Bool(1), args.Error(2)
}

func (m *serviceMock) FindAll(ctx context.Context) ([]noteRecord, error) {
	args := m.Called()
	return args.Get(0).([]noteRecord), args.Error(1)
}

func (m *serviceMock) DeleteByID(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *serviceMock) Filter(ctx context.Context, req sharedDomain.FilterRequest) ([]noteRecord, error) {
	args := m.Called(req)
	return args.Get(0).([]noteRecord), args.Error(1)
}

func (m *serviceMock) Count(ctx context.Context, req sharedDomain.FilterRequest) (int64, error) {
	args := m.Called(req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *serviceMock) CountAll(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func newRouter(svc *serviceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterCrudRoutes(r, "/notes", NewCrudHandler[noteRecord](svc, func(n *noteRecord, id string) { n.ID = id }))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Save", noteRecord{Title: "hola"}).Return(noteRecord{ID: "n1", Title: "hola", Version: 1}, nil).Once()

	w := do(newRouter(svc), http.MethodPost, "/notes", `{"title":"hola"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"id":"n1","title":"hola","version":1}}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestCreate_ValidationErrorsAreListed(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Save", mock.Anything).Return(noteRecord{}, &sharedDomain.ValidationError{Messages: []string{"title is required", "title too short"}})

	w := do(newRouter(svc), http.MethodPost, "/notes", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"message":"validation failed","errors":["title is required","title too short"]}}`, w.Body.String())
}

func TestUpdate_UsesPathIDAndMapsConflict(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Update", noteRecord{ID: "n1", Title: "x", Version: 1}).
		Return(noteRecord{}, &sharedDomain.ConflictError{Type: "note", ID: "n1"}).Once()

	w := do(newRouter(svc), http.MethodPut, "/notes/n1", `{"title":"x","version":1}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	svc.AssertExpectations(t)
}

func TestGet_AbsentIs404(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Find", "nope").Return(noteRecord{}, false, nil)

	w := do(newRouter(svc), http.MethodGet, "/notes/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	svc := &serviceMock{}
	svc.On("DeleteByID", "n1").Return(nil).Once()
	svc.On("DeleteByID", "n2").Return(&sharedDomain.NotFoundError{Type: "note", ID: "n2"}).Once()
	r := newRouter(svc)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/notes/n1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/notes/n2", "").Code)
}

func TestFilter_ReturnsPageAndTotal(t *testing.T) {
	svc := &serviceMock{}
	matchReq := mock.MatchedBy(func(req sharedDomain.FilterRequest) bool {
		return len(req.AndCriteria) == 1 &&
			req.AndCriteria[0].Key() == "title" &&
			req.AndCriteria[0].Op() == sharedDomain.OpLike &&
			req.PageSize == 2
	})
	svc.On("Filter", matchReq).Return([]noteRecord{{ID: "n1", Title: "Go"}}, nil).Once()
	svc.On("Count", matchReq).Return(int64(7), nil).Once()

	body := `{"andCriteria":[{"key":"title","operation":"like","value":"Go"}],"page":0,"pageSize":2}`
	w := do(newRouter(svc), http.MethodPost, "/notes/filter", body)

	require.Equal(t, http.StatusOK, w.Code)
	var page Page[noteRecord]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 2, page.PageSize)
	assert.Len(t, page.Data, 1)
	svc.AssertExpectations(t)
}

func TestFilter_UnknownOperatorIs400(t *testing.T) {
	svc := &serviceMock{}
	body := `{"andCriteria":[{"key":"title","operation":"SOUNDS_LIKE","value":"Go"}]}`

	w := do(newRouter(svc), http.MethodPost, "/notes/filter", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Filter", mock.Anything)
}

func TestFilter_QueryErrorIs400(t *testing.T) {
	svc := &serviceMock{}
	svc.On("Filter", mock.Anything).Return([]noteRecord(nil), &sharedDomain.UnknownFieldError{Type: "note", Field: "colour"})
	svc.On("Count", mock.Anything).Return(int64(0), &sharedDomain.UnknownFieldError{Type: "note", Field: "colour"})

	w := do(newRouter(svc), http.MethodPost, "/notes/filter", `{"andCriteria":[{"key":"colour","operation":"EQUAL","value":"red"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCountEndpoints(t *testing.T) {
	svc := &serviceMock{}
	svc.On("CountAll").Return(int64(3), nil).Once()
	svc.On("Count", mock.Anything).Return(int64(0), errors.New("db down")).Once()
	r := newRouter(svc)

	w := do(r, http.MethodGet, "/notes/count", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":3}`, w.Body.String())

	w = do(r, http.MethodPost, "/notes/count", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestList(t *testing.T) {
	svc := &serviceMock{}
	svc.On("FindAll").Return([]noteRecord{{ID: "a"}, {ID: "b"}}, nil)

	w := do(newRouter(svc), http.MethodGet, "/notes", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"id":"a","title":"","version":0},{"id":"b","title":"","version":0}]}`, w.Body.String())
}
