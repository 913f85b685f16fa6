package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/model"
	"github.com/printdesk/printdesk/pkg/notify"
	"github.com/printdesk/printdesk/pkg/store/postgres"
)

type NotificationHandler struct {
	db         *postgres.Store
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func NewNotificationHandler(db *postgres.Store, dispatcher *notify.Dispatcher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, dispatcher: dispatcher, logger: logger}
}

type dispatchRequest struct {
	Type               string      `json:"type"`
	CustomerID         string      `json:"customer_id" binding:"required"`
	JobID              string      `json:"job_id"`
	DeliveryScheduleID string      `json:"delivery_schedule_id"`
	Event              string      `json:"event" binding:"required"`
	Subject            string      `json:"subject"`
	Message            string      `json:"message" binding:"required"`
	CustomData         model.JSONB `json:"custom_data"`
}

type dispatchResponse struct {
	Success      bool     `json:"success"`
	EmailSent    bool     `json:"email_sent"`
	SMSSent      bool     `json:"sms_sent"`
	Errors       []string `json:"errors,omitempty"`
	CustomerName string   `json:"customer_name,omitempty"`
}

// Dispatch is the outbound notification entry point: it resolves the
// customer's channel preferences and fans the message out.
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	channels := strings.ToLower(strings.TrimSpace(req.Type))
	switch channels {
	case "", notify.ChannelsEmail, notify.ChannelsSMS, notify.ChannelsBoth:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be email, sms or both"})
		return
	}

	dispatchReq := notify.Request{
		CustomerID: req.CustomerID,
		Event:      req.Event,
		Subject:    req.Subject,
		Message:    req.Message,
		Channels:   channels,
	}

	if req.JobID != "" {
		jobID, err := uuid.Parse(req.JobID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
			return
		}
		dispatchReq.JobID = &jobID
	}
	if req.DeliveryScheduleID != "" {
		deliveryID, err := uuid.Parse(req.DeliveryScheduleID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery_schedule_id"})
			return
		}
		dispatchReq.DeliveryScheduleID = &deliveryID
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), dispatchReq)
	if err != nil {
		h.logger.Error("dispatch failed", zap.String("customer_id", req.CustomerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dispatchResponse{
		Success:      result.Success(),
		EmailSent:    result.EmailSent,
		SMSSent:      result.SMSSent,
		Errors:       result.Errors,
		CustomerName: result.CustomerName,
	})
}

func (h *NotificationHandler) ListLogs(c *gin.Context) {
	query := postgres.LogQuery{
		CustomerID: strings.TrimSpace(c.Query("customer_id")),
		Channel:    strings.TrimSpace(c.Query("channel")),
		Status:     strings.TrimSpace(c.Query("status")),
		Limit:      parseLimit(c.Query("limit"), 50),
		Offset:     parseOffset(c.Query("offset")),
	}

	logs, total, err := postgres.NewNotificationLogRepository(h.db.DB()).Query(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to query notification logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query notification logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
	})
}
