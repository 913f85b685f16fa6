package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/model"
	"github.com/printdesk/printdesk/pkg/store/postgres"
)

type DeliveryHandler struct {
	db     *postgres.Store
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewDeliveryHandler(db *postgres.Store, bus *eventbus.Bus, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{db: db, bus: bus, logger: logger}
}

type deliveryCreateRequest struct {
	JobID        string    `json:"job_id" binding:"required"`
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
	Address      string    `json:"address" binding:"required"`
}

type deliveryStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	DriverNote string `json:"driver_note"`
}

type deliveryResponse struct {
	ID           string `json:"id"`
	JobID        string `json:"job_id"`
	ScheduledFor string `json:"scheduled_for"`
	Address      string `json:"address"`
	Status       string `json:"status"`
	DriverNote   string `json:"driver_note,omitempty"`
}

func (h *DeliveryHandler) Create(c *gin.Context) {
	var req deliveryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	ctx := c.Request.Context()
	job, err := postgres.NewJobRepository(h.db.DB()).GetByID(ctx, jobID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.Error("failed to load job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule delivery"})
		return
	}

	schedule := &model.DeliverySchedule{
		ID:           uuid.New(),
		JobID:        job.ID,
		ScheduledFor: req.ScheduledFor,
		Address:      req.Address,
		Status:       model.DeliveryScheduled,
	}
	if err := postgres.NewDeliveryRepository(h.db.DB()).Create(ctx, schedule); err != nil {
		h.logger.Error("failed to create delivery schedule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule delivery"})
		return
	}

	h.publishDeliveryEvent(ctx, eventbus.EventDeliveryScheduled, schedule, job.CustomerID.String())

	c.JSON(http.StatusCreated, mapDelivery(schedule))
}

func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	deliveryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery id"})
		return
	}

	var req deliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	status := model.DeliveryStatus(req.Status)
	switch status {
	case model.DeliveryScheduled, model.DeliveryOutForDelivery, model.DeliveryDelivered, model.DeliveryFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	ctx := c.Request.Context()
	repo := postgres.NewDeliveryRepository(h.db.DB())

	schedule, err := repo.GetByID(ctx, deliveryID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
			return
		}
		h.logger.Error("failed to load delivery", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update delivery"})
		return
	}

	if err := repo.UpdateStatus(ctx, deliveryID.String(), status, req.DriverNote); err != nil {
		h.logger.Error("failed to update delivery", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update delivery"})
		return
	}

	schedule.Status = status
	schedule.DriverNote = req.DriverNote

	customerID := ""
	if schedule.Job != nil {
		customerID = schedule.Job.CustomerID.String()
	}
	eventType := eventbus.EventDeliveryStatusUpdate
	if status == model.DeliveryDelivered {
		eventType = eventbus.EventDeliveryCompleted
	}
	h.publishDeliveryEvent(ctx, eventType, schedule, customerID)

	c.JSON(http.StatusOK, mapDelivery(schedule))
}

func (h *DeliveryHandler) publishDeliveryEvent(ctx context.Context, eventType string, schedule *model.DeliverySchedule, customerID string) {
	if h.bus == nil || customerID == "" {
		return
	}
	payload := eventbus.DeliveryEvent{
		DeliveryID: schedule.ID.String(),
		JobID:      schedule.JobID.String(),
		CustomerID: customerID,
		Status:     string(schedule.Status),
	}
	event, err := eventbus.NewEvent(eventType, payload)
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, eventbus.ChannelDelivery, event); err != nil {
		h.logger.Warn("failed to publish delivery event",
			zap.String("event", eventType),
			zap.String("delivery_id", schedule.ID.String()),
			zap.Error(err))
	}
}

func mapDelivery(schedule *model.DeliverySchedule) deliveryResponse {
	return deliveryResponse{
		ID:           schedule.ID.String(),
		JobID:        schedule.JobID.String(),
		ScheduledFor: formatTime(schedule.ScheduledFor),
		Address:      schedule.Address,
		Status:       string(schedule.Status),
		DriverNote:   schedule.DriverNote,
	}
}
