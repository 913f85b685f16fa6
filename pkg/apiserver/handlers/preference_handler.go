package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/apiserver/middleware"
	"github.com/printdesk/printdesk/pkg/model"
	"github.com/printdesk/printdesk/pkg/store/postgres"
)

type PreferenceHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewPreferenceHandler(db *postgres.Store, logger *zap.Logger) *PreferenceHandler {
	return &PreferenceHandler{db: db, logger: logger}
}

type preferenceResponse struct {
	EmailNotifications  bool `json:"email_notifications"`
	SMSNotifications    bool `json:"sms_notifications"`
	JobStatusUpdates    bool `json:"job_status_updates"`
	DeliveryUpdates     bool `json:"delivery_updates"`
	PromotionalMessages bool `json:"promotional_messages"`
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	customerID := c.GetString(middleware.ContextCustomerID)

	pref, err := postgres.NewPreferenceRepository(h.db.DB()).GetOrCreate(c.Request.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to load preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}

	c.JSON(http.StatusOK, mapPreference(pref))
}

func (h *PreferenceHandler) Update(c *gin.Context) {
	customerID := c.GetString(middleware.ContextCustomerID)

	var req preferenceResponse
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	repo := postgres.NewPreferenceRepository(h.db.DB())

	// Ensure the row exists before updating it.
	pref, err := repo.GetOrCreate(c.Request.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to load preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}

	pref.EmailNotifications = req.EmailNotifications
	pref.SMSNotifications = req.SMSNotifications
	pref.JobStatusUpdates = req.JobStatusUpdates
	pref.DeliveryUpdates = req.DeliveryUpdates
	pref.PromotionalMessages = req.PromotionalMessages

	if err := repo.Update(c.Request.Context(), pref); err != nil {
		h.logger.Error("failed to update preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}

	c.JSON(http.StatusOK, mapPreference(pref))
}

func mapPreference(pref *model.NotificationPreference) preferenceResponse {
	return preferenceResponse{
		EmailNotifications:  pref.EmailNotifications,
		SMSNotifications:    pref.SMSNotifications,
		JobStatusUpdates:    pref.JobStatusUpdates,
		DeliveryUpdates:     pref.DeliveryUpdates,
		PromotionalMessages: pref.PromotionalMessages,
	}
}
