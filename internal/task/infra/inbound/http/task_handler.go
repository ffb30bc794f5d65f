package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sharedHTTP "github.com/davicafu/crudlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/crudlab/internal/task/application"
	"github.com/davicafu/crudlab/pkg/utils"
)

// TaskService es lo que exponen las rutas de tareas.
type TaskService interface {
	sharedHTTP.Service[application.TaskRecord]
	CompleteTask(ctx context.Context, id string) (application.TaskRecord, error)
	FailTask(ctx context.Context, id string) (application.TaskRecord, error)
	ListPendingTasksForUser(ctx context.Context, userID uuid.UUID) ([]application.TaskRecord, error)
	ListCompletedTasksForUser(ctx context.Context, userID uuid.UUID) ([]application.TaskRecord, error)
	ListByAssigneeName(ctx context.Context, name string, page, pageSize int) ([]application.TaskRecord, error)
	ListUnassigned(ctx context.Context, page, pageSize int) ([]application.TaskRecord, error)
}

// TaskHandler encapsula los endpoints HTTP relacionados con Task.
type TaskHandler struct {
	service TaskService
}

// NewTaskHandler crea un nuevo TaskHandler.
func NewTaskHandler(service TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// ---------------- Transiciones ----------------

// CompleteTask endpoint POST /tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	task, err := h.service.CompleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, task)
}

// FailTask endpoint POST /tasks/:id/fail
func (h *TaskHandler) FailTask(c *gin.Context) {
	task, err := h.service.FailTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, task)
}

// ---------------- Consultas ----------------

// ListByAssignee endpoint GET /tasks/assignee/:userId?status=pending|completed
func (h *TaskHandler) ListByAssignee(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.SendBadRequest(c, "invalid user id")
		return
	}

	var tasks []application.TaskRecord
	switch c.DefaultQuery("status", "pending") {
	case "pending":
		tasks, err = h.service.ListPendingTasksForUser(c.Request.Context(), userID)
	case "completed":
		tasks, err = h.service.ListCompletedTasksForUser(c.Request.Context(), userID)
	default:
		utils.SendBadRequest(c, "status must be pending or completed")
		return
	}
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, tasks)
}

// Search endpoint GET /tasks/search?assignee=&page=&pageSize=. Sin assignee devuelve las tareas
// sin responsable.
func (h *TaskHandler) Search(c *gin.Context) {
	page, pageSize, ok := pagination(c)
	if !ok {
		return
	}

	var (
		tasks []application.TaskRecord
		err   error
	)
	if name := c.Query("assignee"); name != "" {
		tasks, err = h.service.ListByAssigneeName(c.Request.Context(), name, page, pageSize)
	} else {
		tasks, err = h.service.ListUnassigned(c.Request.Context(), page, pageSize)
	}
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, tasks)
}

func pagination(c *gin.Context) (page, pageSize int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		utils.SendBadRequest(c, "invalid page")
		return 0, 0, false
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil {
		utils.SendBadRequest(c, "invalid pageSize")
		return 0, 0, false
	}
	return page, pageSize, true
}
