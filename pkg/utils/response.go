package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

// ErrorResponse define la estructura estándar para las respuestas de error.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"` // mensajes de validación, todos a la vez
}

// SendSuccess envía una respuesta exitosa con un payload de datos.
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"data": data,
	})
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": ErrorResponse{
			Message: message,
		},
	})
}

// SendServiceError traduce los errores del servicio CRUD a su código HTTP.
func SendServiceError(c *gin.Context, err error) {
	var vErr *sharedDomain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": ErrorResponse{Message: sharedDomain.ErrValidation.Error(), Errors: vErr.Messages},
		})
	case sharedDomain.IsQueryError(err):
		SendBadRequest(c, err.Error())
	case errors.Is(err, sharedDomain.ErrConflict):
		SendError(c, http.StatusConflict, err.Error())
	case errors.Is(err, sharedDomain.ErrNotFound):
		SendNotFound(c, err.Error())
	default:
		_ = c.Error(err)
		SendInternalServerError(c, "internal error")
	}
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}
