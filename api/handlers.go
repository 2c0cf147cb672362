package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/identkit/userhub/pkg/errors"
	"github.com/identkit/userhub/pkg/users"
)

// healthCheck reports service liveness.
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
	})
}

// login verifies credentials and returns the identity plus a fresh token.
func (s *Server) login(c *gin.Context) {
	var params users.LoginParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBadRequest(c, "invalid request body", nil)
		return
	}
	if errs := params.Validate(); len(errs) > 0 {
		s.respondBadRequest(c, "validation failed", errs)
		return
	}

	result, err := s.svc.Login(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Code:    http.StatusOK,
		Message: "login successful",
		Data:    result,
	})
}

// createUser creates a new identity.
func (s *Server) createUser(c *gin.Context) {
	var params users.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBadRequest(c, "invalid request body", nil)
		return
	}
	if errs := params.Validate(); len(errs) > 0 {
		s.respondBadRequest(c, "validation failed", errs)
		return
	}

	user, err := s.svc.Create(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserResponse{
		Code:    http.StatusCreated,
		Message: "user created",
		Data:    user,
	})
}

// listUsers returns all identities.
func (s *Server) listUsers(c *gin.Context) {
	list, err := s.svc.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserListResponse{
		Code:    http.StatusOK,
		Message: "users retrieved",
		Data:    &list,
	})
}

// getUser returns one identity by id.
func (s *Server) getUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	user, err := s.svc.FindByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		Code:    http.StatusOK,
		Message: "user retrieved",
		Data:    user,
	})
}

// getCurrentUser returns the identity behind the verified token claims.
func (s *Server) getCurrentUser(c *gin.Context) {
	userID := c.GetUint(ctxUserID)

	user, err := s.svc.FindByID(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		Code:    http.StatusOK,
		Message: "user retrieved",
		Data:    user,
	})
}

// updateUser modifies an identity. A password in the body is re-hashed;
// absent fields are left untouched.
func (s *Server) updateUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	var params users.UpdateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBadRequest(c, "invalid request body", nil)
		return
	}
	if errs := params.Validate(); len(errs) > 0 {
		s.respondBadRequest(c, "validation failed", errs)
		return
	}

	user, err := s.svc.Update(c.Request.Context(), id, params)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		Code:    http.StatusOK,
		Message: "user updated",
		Data:    user,
	})
}

// deleteUser removes an identity and returns the removed record.
func (s *Server) deleteUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	user, err := s.svc.Delete(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		Code:    http.StatusOK,
		Message: "user deleted",
		Data:    user,
	})
}

// pathID parses the :id path parameter, answering 400 itself on failure.
func (s *Server) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		s.respondBadRequest(c, "id must be a positive integer", nil)
		return 0, false
	}
	return uint(id), true
}

// respondBadRequest emits a 400 with optional field-level errors.
func (s *Server) respondBadRequest(c *gin.Context, message string, errs []users.FieldError) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: message,
		Errors:  errs,
	})
}

// respondError maps a service error onto the wire. Internal faults are
// logged and answered with a generic message; client errors carry the
// structured message through.
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	message := "internal server error"
	if status != http.StatusInternalServerError {
		var e *apperrors.Error
		if apperrors.AsError(err, &e) {
			message = e.Message
		}
	} else {
		s.logger.Error("request failed", err, map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		})
	}

	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
	})
}
