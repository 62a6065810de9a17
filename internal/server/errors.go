package server

import (
	"errors"
	"net/http"
	"paydesk/internal/domain"

	"github.com/gin-gonic/gin"
)

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindConflict, domain.KindSignature:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"success": false, "message": ...}. Only the taxonomy
// message reaches the client.
func (s *Server) fail(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = &domain.Error{Kind: domain.KindUnknown, Message: "server error", Err: err}
	}
	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("kind", de.Kind.String()).Error("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": de.Message})
}
