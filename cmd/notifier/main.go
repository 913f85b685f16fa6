package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/printdesk/printdesk/pkg/config"
	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/notify"
	"github.com/printdesk/printdesk/pkg/store/postgres"
	redisclient "github.com/printdesk/printdesk/pkg/store/redis"
)

// The notifier consumes job and delivery events off the bus and runs
// notification fan-out away from the request path. A dropped event means a
// missed notification, never an inconsistent job: the status transition is
// the source of truth.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	dispatcher := notify.NewDispatcher(
		postgres.NewCustomerRepository(db.DB()),
		postgres.NewPreferenceRepository(db.DB()),
		postgres.NewJobRepository(db.DB()),
		postgres.NewNotificationLogRepository(db.DB()),
		notify.NewResendSender(cfg.Email),
		notify.NewTwilioSender(cfg.SMS),
		logger,
		cfg.Notify,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down notifier...")
		cancel()
	}()

	bus := eventbus.NewBus(redis.Client())
	events := bus.Subscribe(ctx, eventbus.ChannelJob, eventbus.ChannelDelivery)

	logger.Info("Notifier started, waiting for events")

	for event := range events {
		req, ok := requestFor(event, logger)
		if !ok {
			continue
		}
		result, err := dispatcher.Dispatch(ctx, req)
		if err != nil {
			logger.Error("dispatch failed",
				zap.String("event", event.Type),
				zap.String("customer_id", req.CustomerID),
				zap.Error(err))
			continue
		}
		logger.Info("dispatched",
			zap.String("event", event.Type),
			zap.Bool("email_sent", result.EmailSent),
			zap.Bool("sms_sent", result.SMSSent),
			zap.Strings("errors", result.Errors))
	}
}

func requestFor(event *eventbus.Event, logger *zap.Logger) (notify.Request, bool) {
	switch event.Type {
	case eventbus.EventJobSubmitted, eventbus.EventStatusUpdated,
		eventbus.EventAdminJobSubmitted, eventbus.EventJobCancelled:
		var payload eventbus.JobEvent
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			logger.Warn("bad job event payload", zap.String("event", event.Type), zap.Error(err))
			return notify.Request{}, false
		}
		return jobRequest(event.Type, payload)
	case eventbus.EventDeliveryScheduled, eventbus.EventDeliveryCompleted,
		eventbus.EventDeliveryStatusUpdate:
		var payload eventbus.DeliveryEvent
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			logger.Warn("bad delivery event payload", zap.String("event", event.Type), zap.Error(err))
			return notify.Request{}, false
		}
		return deliveryRequest(event.Type, payload)
	default:
		logger.Warn("ignoring unknown event", zap.String("event", event.Type))
		return notify.Request{}, false
	}
}

func jobRequest(eventType string, payload eventbus.JobEvent) (notify.Request, bool) {
	jobID, err := parseUUID(payload.JobID)
	if err != nil {
		return notify.Request{}, false
	}

	req := notify.Request{
		CustomerID: payload.CustomerID,
		Event:      eventType,
		JobID:      jobID,
		Channels:   notify.ChannelsBoth,
	}

	switch eventType {
	case eventbus.EventJobSubmitted:
		req.Subject = "We received your print job"
		req.Message = fmt.Sprintf("Your print job has been received and is now %s. Tracking code: %s.",
			payload.Status, payload.TrackingCode)
	case eventbus.EventStatusUpdated:
		req.Subject = "Your print job status changed"
		req.Message = fmt.Sprintf("Your print job is now %s. Tracking code: %s.",
			payload.Status, payload.TrackingCode)
	case eventbus.EventAdminJobSubmitted:
		req.CustomerID = notify.AdminBroadcast
		req.Subject = "New print job submitted"
		req.Message = fmt.Sprintf("A new print job was submitted (tracking code %s).", payload.TrackingCode)
	case eventbus.EventJobCancelled:
		// Cancellation rides the status_updated classification so the
		// customer's job-update preference governs it.
		req.Event = eventbus.EventStatusUpdated
		req.Subject = "Your print job was cancelled"
		req.Message = fmt.Sprintf("Your print job (tracking code %s) has been cancelled.", payload.TrackingCode)
	}
	return req, true
}

func deliveryRequest(eventType string, payload eventbus.DeliveryEvent) (notify.Request, bool) {
	deliveryID, err := parseUUID(payload.DeliveryID)
	if err != nil {
		return notify.Request{}, false
	}

	req := notify.Request{
		CustomerID:         payload.CustomerID,
		Event:              eventType,
		DeliveryScheduleID: deliveryID,
		Channels:           notify.ChannelsBoth,
	}

	switch eventType {
	case eventbus.EventDeliveryScheduled:
		req.Subject = "Your delivery is scheduled"
		req.Message = "A delivery has been scheduled for your print job."
	case eventbus.EventDeliveryCompleted:
		req.Subject = "Your order was delivered"
		req.Message = "Your print job has been delivered."
	default:
		req.Subject = "Delivery update"
		req.Message = fmt.Sprintf("Your delivery is now %s.", payload.Status)
	}
	return req, true
}

func parseUUID(value string) (*uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
