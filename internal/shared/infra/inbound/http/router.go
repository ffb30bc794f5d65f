package http

import "github.com/gin-gonic/gin"

// RegisterCrudRoutes monta las rutas CRUD y de filtrado bajo path.
func RegisterCrudRoutes[D any](r gin.IRouter, path string, h *CrudHandler[D]) {
	g := r.Group(path)
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.POST("/filter", h.Filter)
		g.POST("/count", h.Count)
		g.GET("/count", h.CountAll)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}
}
