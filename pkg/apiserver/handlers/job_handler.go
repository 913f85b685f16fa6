package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/apiserver/middleware"
	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/metrics"
	"github.com/printdesk/printdesk/pkg/model"
	"github.com/printdesk/printdesk/pkg/store/postgres"
	"github.com/printdesk/printdesk/pkg/workflow"
)

type JobHandler struct {
	db     *postgres.Store
	engine *workflow.Engine
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewJobHandler(db *postgres.Store, engine *workflow.Engine, bus *eventbus.Bus, logger *zap.Logger) *JobHandler {
	return &JobHandler{db: db, engine: engine, bus: bus, logger: logger}
}

type jobCreateRequest struct {
	Title            string   `json:"title" binding:"required"`
	ServiceID        string   `json:"service_id" binding:"required"`
	DeliveryMethod   string   `json:"delivery_method"`
	Quantity         int      `json:"quantity"`
	FinishingOptions []string `json:"finishing_options"`
	Notes            string   `json:"notes"`
}

type jobResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	CustomerID     string   `json:"customer_id"`
	ServiceID      string   `json:"service_id"`
	Status         string   `json:"status"`
	DeliveryMethod string   `json:"delivery_method"`
	TrackingCode   string   `json:"tracking_code"`
	Quantity       int      `json:"quantity"`
	Finishing      []string `json:"finishing_options,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type jobDetailResponse struct {
	jobResponse
	Deliveries []deliveryResponse `json:"deliveries"`
}

func (h *JobHandler) Create(c *gin.Context) {
	var req jobCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	customerID, err := uuid.Parse(c.GetString(middleware.ContextCustomerID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid customer identity"})
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_id"})
		return
	}

	deliveryMethod := model.DeliveryCollection
	if req.DeliveryMethod == string(model.DeliveryCourier) {
		deliveryMethod = model.DeliveryCourier
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	ctx := c.Request.Context()

	// New jobs start at the lowest-sequence active status. If the workflow
	// store is unreachable, submission fails closed.
	initial, err := postgres.NewStatusRepository(h.db.DB()).GetInitial(ctx)
	if err != nil {
		h.logger.Error("failed to resolve initial status", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job submission is temporarily unavailable"})
		return
	}

	job := &model.Job{
		ID:               uuid.New(),
		Title:            req.Title,
		CustomerID:       customerID,
		ServiceID:        serviceID,
		CurrentStatusID:  initial.ID,
		Status:           initial.Name,
		DeliveryMethod:   deliveryMethod,
		TrackingCode:     newTrackingCode(),
		Quantity:         quantity,
		FinishingOptions: req.FinishingOptions,
		Notes:            req.Notes,
	}

	if err := postgres.NewJobRepository(h.db.DB()).Create(ctx, job); err != nil {
		h.logger.Error("failed to create job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	metrics.JobsSubmitted.Inc()

	h.publishJobEvent(ctx, eventbus.EventJobSubmitted, job)
	h.publishJobEvent(ctx, eventbus.EventAdminJobSubmitted, job)

	c.JSON(http.StatusCreated, mapJob(job))
}

func (h *JobHandler) List(c *gin.Context) {
	customerID := c.GetString(middleware.ContextCustomerID)
	if c.GetString(middleware.ContextRole) == string(model.RoleAdmin) {
		// Admins see everything, optionally filtered by status.
		customerID = strings.TrimSpace(c.Query("customer_id"))
	}

	var statusID *uint
	if statusValue := strings.TrimSpace(c.Query("status_id")); statusValue != "" {
		parsed, err := strconv.ParseUint(statusValue, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status_id"})
			return
		}
		id := uint(parsed)
		statusID = &id
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	repo := postgres.NewJobRepository(h.db.DB())
	jobs, total, err := repo.List(c.Request.Context(), customerID, statusID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	response := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		response = append(response, mapJob(&jobs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  response,
		"total": total,
	})
}

func (h *JobHandler) Get(c *gin.Context) {
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}

	deliveries, err := postgres.NewDeliveryRepository(h.db.DB()).ListByJob(c.Request.Context(), job.ID.String())
	if err != nil {
		h.logger.Error("failed to list deliveries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	detail := jobDetailResponse{
		jobResponse: mapJob(job),
		Deliveries:  make([]deliveryResponse, 0, len(deliveries)),
	}
	for i := range deliveries {
		detail.Deliveries = append(detail.Deliveries, mapDelivery(&deliveries[i]))
	}

	c.JSON(http.StatusOK, detail)
}

func (h *JobHandler) Advance(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	updated, err := h.engine.Advance(c.Request.Context(), job)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, mapJob(updated))
	case errors.Is(err, workflow.ErrFinalStage):
		// Nothing to do; the job is already at the last stage.
		c.JSON(http.StatusOK, gin.H{"status": "final_stage", "job": mapJob(job)})
	case errors.Is(err, workflow.ErrStatusChanged):
		c.JSON(http.StatusConflict, gin.H{"error": "job was modified concurrently, reload and retry"})
	case errors.Is(err, workflow.ErrJobCancelled), errors.Is(err, workflow.ErrUnknownStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("failed to advance job", zap.String("job_id", job.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to advance job"})
	}
}

func (h *JobHandler) Cancel(c *gin.Context) {
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}

	updated, err := h.engine.Cancel(c.Request.Context(), job)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, mapJob(updated))
	case errors.Is(err, workflow.ErrTooLateToCancel),
		errors.Is(err, workflow.ErrAlreadyCompleted),
		errors.Is(err, workflow.ErrJobCancelled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrStatusChanged):
		c.JSON(http.StatusConflict, gin.H{"error": "job was modified concurrently, reload and retry"})
	default:
		h.logger.Error("failed to cancel job", zap.String("job_id", job.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel job"})
	}
}

// Track is the public self-service lookup behind the tracking code printed
// on receipts and embedded in notification emails.
func (h *JobHandler) Track(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tracking code is required"})
		return
	}

	job, err := postgres.NewJobRepository(h.db.DB()).GetByTrackingCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no job with that tracking code"})
			return
		}
		h.logger.Error("failed to look up tracking code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":           job.Title,
		"status":          job.Status,
		"delivery_method": string(job.DeliveryMethod),
		"updated_at":      formatTime(job.UpdatedAt),
	})
}

func (h *JobHandler) loadJob(c *gin.Context) (*model.Job, bool) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return nil, false
	}

	job, err := postgres.NewJobRepository(h.db.DB()).GetByID(c.Request.Context(), jobID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return nil, false
		}
		h.logger.Error("failed to load job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return nil, false
	}
	return job, true
}

// loadOwnedJob restricts non-admin callers to their own jobs.
func (h *JobHandler) loadOwnedJob(c *gin.Context) (*model.Job, bool) {
	job, ok := h.loadJob(c)
	if !ok {
		return nil, false
	}
	if c.GetString(middleware.ContextRole) != string(model.RoleAdmin) &&
		job.CustomerID.String() != c.GetString(middleware.ContextCustomerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return nil, false
	}
	return job, true
}

func (h *JobHandler) publishJobEvent(ctx context.Context, eventType string, job *model.Job) {
	if h.bus == nil {
		return
	}
	payload := eventbus.JobEvent{
		JobID:        job.ID.String(),
		CustomerID:   job.CustomerID.String(),
		Status:       job.Status,
		TrackingCode: job.TrackingCode,
	}
	event, err := eventbus.NewEvent(eventType, payload)
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, eventbus.ChannelJob, event); err != nil {
		h.logger.Warn("failed to publish job event",
			zap.String("event", eventType),
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
	}
}

func mapJob(job *model.Job) jobResponse {
	return jobResponse{
		ID:             job.ID.String(),
		Title:          job.Title,
		CustomerID:     job.CustomerID.String(),
		ServiceID:      job.ServiceID.String(),
		Status:         job.Status,
		DeliveryMethod: string(job.DeliveryMethod),
		TrackingCode:   job.TrackingCode,
		Quantity:       job.Quantity,
		Finishing:      job.FinishingOptions,
		Notes:          job.Notes,
		CreatedAt:      formatTime(job.CreatedAt),
		UpdatedAt:      formatTime(job.UpdatedAt),
	}
}
