package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	sharedHTTP "github.com/davicafu/crudlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/crudlab/internal/user/application"
	"github.com/davicafu/crudlab/pkg/utils"
)

// UserService es lo que exponen las rutas de usuarios: el CRUD genérico y las búsquedas propias.
type UserService interface {
	sharedHTTP.Service[application.UserRecord]
	SearchUsersByName(ctx context.Context, name string) ([]application.UserRecord, error)
	ListReports(ctx context.Context, managerName string, page, pageSize int) ([]application.UserRecord, error)
}

// UserHandler encapsula los endpoints HTTP específicos de User
type UserHandler struct {
	service UserService
}

// NewUserHandler crea un nuevo UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// ---------------- Handlers ----------------

// SearchByName endpoint GET /users/search?name=
func (h *UserHandler) SearchByName(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		utils.SendBadRequest(c, "query parameter 'name' is required")
		return
	}

	users, err := h.service.SearchUsersByName(c.Request.Context(), name)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, users)
}

// ListReports endpoint GET /users/reports?manager=&page=&pageSize=
func (h *UserHandler) ListReports(c *gin.Context) {
	manager := c.Query("manager")
	if manager == "" {
		utils.SendBadRequest(c, "query parameter 'manager' is required")
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		utils.SendBadRequest(c, "invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil {
		utils.SendBadRequest(c, "invalid pageSize")
		return
	}

	users, err := h.service.ListReports(c.Request.Context(), manager, page, pageSize)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, users)
}
