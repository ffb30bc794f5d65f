package http

import (
	"github.com/gin-gonic/gin"

	sharedHTTP "github.com/davicafu/crudlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/crudlab/internal/task/application"
)

// RegisterTaskRoutes registra las rutas HTTP para el dominio de Tareas.
func RegisterTaskRoutes(r gin.IRouter, service TaskService) {
	crud := sharedHTTP.NewCrudHandler[application.TaskRecord](service, application.SetID)
	sharedHTTP.RegisterCrudRoutes(r, "/tasks", crud)

	handler := NewTaskHandler(service)
	tasks := r.Group("/tasks")
	{
		tasks.GET("/search", handler.Search)
		tasks.GET("/assignee/:userId", handler.ListByAssignee)
		tasks.POST("/:id/complete", handler.CompleteTask)
		tasks.POST("/:id/fail", handler.FailTask)
	}
}
