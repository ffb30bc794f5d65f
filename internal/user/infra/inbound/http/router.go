package http

import (
	"github.com/gin-gonic/gin"

	sharedHTTP "github.com/davicafu/crudlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/crudlab/internal/user/application"
)

// RegisterUserRoutes monta el CRUD genérico en /users y las búsquedas propias.
func RegisterUserRoutes(r gin.IRouter, service UserService) {
	crud := sharedHTTP.NewCrudHandler[application.UserRecord](service, application.SetID)
	sharedHTTP.RegisterCrudRoutes(r, "/users", crud)

	handler := NewUserHandler(service)
	users := r.Group("/users")
	{
		users.GET("/search", handler.SearchByName)
		users.GET("/reports", handler.ListReports)
	}
}
