package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smallbiznis/valora-accounts/internal/http/middleware"
	"github.com/smallbiznis/valora-accounts/internal/repository"
	"github.com/smallbiznis/valora-accounts/internal/service"
)

// OrganizationHandler serves the /organization routes. Every route requires
// a bearer token.
type OrganizationHandler struct {
	Organizations *service.OrganizationService
}

// NewOrganizationHandler wires dependencies.
func NewOrganizationHandler(organizations *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{Organizations: organizations}
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing authenticated user"})
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Name is required"})
		return
	}

	resp, err := h.Organizations.Create(c.Request.Context(), req.Name, req.Description, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *OrganizationHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing authenticated user"})
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	resp, err := h.Organizations.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrganizationHandler) GetByID(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing authenticated user"})
		return
	}
	orgID, ok := pathObjectID(c)
	if !ok {
		return
	}

	resp, err := h.Organizations.GetByID(c.Request.Context(), orgID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrganizationHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing authenticated user"})
		return
	}
	orgID, ok := pathObjectID(c)
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	resp, err := h.Organizations.Update(c.Request.Context(), orgID, repository.OrganizationUpdate{
		Name:        req.Name,
		Description: req.Description,
	}, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrganizationHandler) Remove(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing authenticated user"})
		return
	}
	orgID, ok := pathObjectID(c)
	if !ok {
		return
	}

	resp, err := h.Organizations.Remove(c.Request.Context(), orgID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrganizationHandler) InviteUser(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing authenticated user"})
		return
	}
	orgID, ok := pathObjectID(c)
	if !ok {
		return
	}

	var req struct {
		UserEmail string `json:"user_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "user_email is required"})
		return
	}

	resp, err := h.Organizations.InviteUser(c.Request.Context(), orgID, req.UserEmail, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func pathObjectID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid organization id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
