package handlers

import (
	"net/http"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError writes the error envelope and attaches err to the context so
// the request logger records it.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error": apperrors.Message(err),
		"code":  string(apperrors.KindOf(err)),
	})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apperrors.Wrap(apperrors.InvalidArgument, err.Error(), err))
}

func actorID(c *gin.Context) string {
	return c.GetString("userId")
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
