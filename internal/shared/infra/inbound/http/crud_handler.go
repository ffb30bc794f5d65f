package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/pkg/utils"
)

// Service es lo que el handler necesita de application.CrudService.
type Service[D any] interface {
	Save(ctx context.Context, d D) (D, error)
	Update(ctx context.Context, d D) (D, error)
	Find(ctx context.Context, id string) (D, bool, error)
	FindAll(ctx context.Context) ([]D, error)
	DeleteByID(ctx context.Context, id string) error
	Filter(ctx context.Context, req sharedDomain.FilterRequest) ([]D, error)
	Count(ctx context.Context, req sharedDomain.FilterRequest) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

// CrudHandler expone un Service por HTTP.
type CrudHandler[D any] struct {
	service Service[D]
	setID   func(*D, string)
}

// NewCrudHandler: setID copia el :id de la ruta al registro en PUT.
func NewCrudHandler[D any](service Service[D], setID func(*D, string)) *CrudHandler[D] {
	return &CrudHandler[D]{service: service, setID: setID}
}

// Page es la respuesta de POST /filter.
type Page[D any] struct {
	Data     []D   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// ---------------- Handlers ----------------

// Create endpoint POST /
func (h *CrudHandler[D]) Create(c *gin.Context) {
	var rec D
	if err := c.ShouldBindJSON(&rec); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	saved, err := h.service.Save(c.Request.Context(), rec)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, saved)
}

// Update endpoint PUT /:id
func (h *CrudHandler[D]) Update(c *gin.Context) {
	var rec D
	if err := c.ShouldBindJSON(&rec); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	h.setID(&rec, c.Param("id"))

	updated, err := h.service.Update(c.Request.Context(), rec)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, updated)
}

// Get endpoint GET /:id
func (h *CrudHandler[D]) Get(c *gin.Context) {
	id := c.Param("id")
	rec, found, err := h.service.Find(c.Request.Context(), id)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	if !found {
		utils.SendNotFound(c, "record "+id+" not found")
		return
	}
	utils.SendSuccess(c, http.StatusOK, rec)
}

// List endpoint GET /
func (h *CrudHandler[D]) List(c *gin.Context) {
	all, err := h.service.FindAll(c.Request.Context())
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, all)
}

// Delete endpoint DELETE /:id
func (h *CrudHandler[D]) Delete(c *gin.Context) {
	if err := h.service.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		utils.SendServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Filter endpoint POST /filter. La página y el total se piden en paralelo.
func (h *CrudHandler[D]) Filter(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}

	var page Page[D]
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		data, err := h.service.Filter(ctx, req)
		page.Data = data
		return err
	})
	g.Go(func() error {
		total, err := h.service.Count(ctx, req)
		page.Total = total
		return err
	})
	if err := g.Wait(); err != nil {
		utils.SendServiceError(c, err)
		return
	}

	if page.Data == nil {
		page.Data = []D{}
	}
	page.Page, page.PageSize = req.Page, req.PageSize
	c.JSON(http.StatusOK, page)
}

// Count endpoint POST /count
func (h *CrudHandler[D]) Count(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	n, err := h.service.Count(c.Request.Context(), req)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, n)
}

// CountAll endpoint GET /count
func (h *CrudHandler[D]) CountAll(c *gin.Context) {
	n, err := h.service.CountAll(c.Request.Context())
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, n)
}

// bindFilter decodifica el FilterRequest. Un operador desconocido es un 400.
func bindFilter(c *gin.Context) (sharedDomain.FilterRequest, bool) {
	req := sharedDomain.NewFilterRequest(0, 20)
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return req, false
	}
	return req, true
}
