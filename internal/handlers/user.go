package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
)

// UpdateProfileAttributes merges attributes into the caller's profile
// (PUT /profile/attributes)
func (h *Handler) UpdateProfileAttributes(c *gin.Context) {
	var attrs map[string]string
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Message: "invalid attributes"})
		return
	}
	c.JSON(http.StatusOK, h.store.Users().UpdateAttributes(c.GetString(subjectKey), attrs))
}

// CreateUser registers a user
// (POST /user)
func (h *Handler) CreateUser(c *gin.Context) {
	var user v1.UserDto
	if err := c.ShouldBindJSON(&user); err != nil || user.Name == "" {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Message: "user name is required"})
		return
	}

	created, err := h.store.Users().Create(user)
	if err != nil {
		respondError(c, err)
		return
	}

	created.Password = ""
	c.JSON(http.StatusCreated, created)
}

// DeleteUser removes a user
// (DELETE /user/{id})
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.store.Users().Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
