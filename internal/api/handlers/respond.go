package handlers

import (
	"net/http"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/log"

	"github.com/gin-gonic/gin"
)

// Responder writes error responses in the {"message": ...} envelope.
type Responder struct {
	ExposeErrors bool
}

func (r Responder) Error(c *gin.Context, err error) {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger := log.WithRequest("http", c.GetString("request_id"))
		logger.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.JSON(status, gin.H{"message": apperror.Message(err, r.ExposeErrors)})
}

// BadRequest reports a body or query that could not be bound.
func (r Responder) BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}
