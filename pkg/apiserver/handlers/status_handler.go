package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/model"
	"github.com/printdesk/printdesk/pkg/store/postgres"
)

type StatusHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewStatusHandler(db *postgres.Store, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{db: db, logger: logger}
}

type statusRequest struct {
	Name     string `json:"name" binding:"required"`
	Sequence int    `json:"sequence" binding:"min=0"`
	IsActive *bool  `json:"is_active"`
}

type statusResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
	IsActive bool   `json:"is_active"`
}

func (h *StatusHandler) List(c *gin.Context) {
	statuses, err := postgres.NewStatusRepository(h.db.DB()).ListActive(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list workflow statuses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workflow statuses"})
		return
	}

	response := make([]statusResponse, 0, len(statuses))
	for _, status := range statuses {
		response = append(response, mapStatus(&status))
	}

	c.JSON(http.StatusOK, gin.H{"statuses": response})
}

func (h *StatusHandler) Create(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	status := &model.WorkflowStatus{
		Name:     req.Name,
		Sequence: req.Sequence,
		IsActive: active,
	}
	if err := postgres.NewStatusRepository(h.db.DB()).Create(c.Request.Context(), status); err != nil {
		h.logger.Error("failed to create workflow status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create workflow status"})
		return
	}

	c.JSON(http.StatusCreated, mapStatus(status))
}

func (h *StatusHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status id"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	repo := postgres.NewStatusRepository(h.db.DB())

	// Deactivating a status still referenced by jobs would strand them.
	if !active {
		referenced, err := repo.Referenced(c.Request.Context(), uint(id))
		if err != nil {
			h.logger.Error("failed to check status references", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update workflow status"})
			return
		}
		if referenced {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "status is still referenced by jobs"})
			return
		}
	}

	status := &model.WorkflowStatus{
		ID:       uint(id),
		Name:     req.Name,
		Sequence: req.Sequence,
		IsActive: active,
	}
	if err := repo.Update(c.Request.Context(), status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow status not found"})
			return
		}
		h.logger.Error("failed to update workflow status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update workflow status"})
		return
	}

	c.JSON(http.StatusOK, mapStatus(status))
}

func mapStatus(status *model.WorkflowStatus) statusResponse {
	return statusResponse{
		ID:       status.ID,
		Name:     status.Name,
		Sequence: status.Sequence,
		IsActive: status.IsActive,
	}
}
