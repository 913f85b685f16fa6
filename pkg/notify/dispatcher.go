// Package notify fans a customer notification out to the enabled channels
// and records one append-only log row per attempt. Channels are independent:
// a provider failure on one never blocks the other, and a committed caller
// operation is never rolled back by anything in this package.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/config"
	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/metrics"
	"github.com/printdesk/printdesk/pkg/model"
)

// AdminBroadcast is the reserved customer id that fans an internal alert out
// to every administrator account, email only, with no preference gating.
const AdminBroadcast = "admin"

const (
	ChannelsEmail = "email"
	ChannelsSMS   = "sms"
	ChannelsBoth  = "both"
)

const defaultSubject = "Notification from PrintDesk"

type Request struct {
	CustomerID         string
	Event              string
	Subject            string
	Message            string
	Channels           string // "email", "sms" or "both"; empty means both
	JobID              *uuid.UUID
	DeliveryScheduleID *uuid.UUID
}

type Result struct {
	EmailSent    bool
	SMSSent      bool
	Errors       []string
	CustomerName string
}

// Success is true when at least one channel delivered; partial success is
// not an error.
func (r Result) Success() bool {
	return r.EmailSent || r.SMSSent
}

type CustomerStore interface {
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	ListAdmins(ctx context.Context) ([]model.Customer, error)
}

type PreferenceStore interface {
	GetOrCreate(ctx context.Context, customerID string) (*model.NotificationPreference, error)
}

type JobStore interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
}

type LogStore interface {
	Append(ctx context.Context, entry *model.NotificationLog) error
}

type Dispatcher struct {
	customers   CustomerStore
	prefs       PreferenceStore
	jobs        JobStore
	logs        LogStore
	email       EmailSender
	sms         SMSSender
	logger      *zap.Logger
	origin      string
	countryCode string
}

func NewDispatcher(
	customers CustomerStore,
	prefs PreferenceStore,
	jobs JobStore,
	logs LogStore,
	email EmailSender,
	sms SMSSender,
	logger *zap.Logger,
	cfg config.NotifyConfig,
) *Dispatcher {
	return &Dispatcher{
		customers:   customers,
		prefs:       prefs,
		jobs:        jobs,
		logs:        logs,
		email:       email,
		sms:         sms,
		logger:      logger,
		origin:      strings.TrimRight(cfg.PublicOrigin, "/"),
		countryCode: cfg.CountryCallingCode,
	}
}

func isJobEvent(event string) bool {
	switch event {
	case eventbus.EventJobSubmitted, eventbus.EventStatusUpdated, eventbus.EventAdminJobSubmitted:
		return true
	}
	return false
}

func isDeliveryEvent(event string) bool {
	switch event {
	case eventbus.EventDeliveryScheduled, eventbus.EventDeliveryCompleted, eventbus.EventDeliveryStatusUpdate:
		return true
	}
	return false
}

func wantsChannel(channels, channel string) bool {
	return channels == ChannelsBoth || channels == channel
}

// Dispatch resolves the customer's channel eligibility and attempts each
// requested channel. The returned error covers internal failures only
// (unknown customer, store unreachable); per-channel provider failures land
// in Result.Errors.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	timer := prometheus.NewTimer(metrics.DispatchDuration)
	defer timer.ObserveDuration()

	if req.Channels == "" {
		req.Channels = ChannelsBoth
	}

	if req.CustomerID == AdminBroadcast {
		return d.broadcastAdmins(ctx, req)
	}

	customer, err := d.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return Result{}, fmt.Errorf("load customer %s: %w", req.CustomerID, err)
	}

	pref, err := d.prefs.GetOrCreate(ctx, req.CustomerID)
	if err != nil {
		return Result{}, fmt.Errorf("load preferences for %s: %w", req.CustomerID, err)
	}

	// Events outside the job/delivery sets disable both channels.
	jobEvent := isJobEvent(req.Event)
	deliveryEvent := isDeliveryEvent(req.Event)
	wanted := (jobEvent && pref.JobStatusUpdates) || (deliveryEvent && pref.DeliveryUpdates)

	emailEligible := pref.EmailNotifications && wanted
	smsEligible := pref.SMSNotifications && wanted

	result := Result{CustomerName: customer.Name}

	if wantsChannel(req.Channels, ChannelsEmail) && emailEligible && customer.Email != "" {
		if errMsg := d.attemptEmail(ctx, req, customer.ID, customer.Email); errMsg == "" {
			result.EmailSent = true
		} else {
			result.Errors = append(result.Errors, errMsg)
		}
	}

	if wantsChannel(req.Channels, ChannelsSMS) && smsEligible && customer.Phone != "" {
		if errMsg := d.attemptSMS(ctx, req, customer.ID, customer.Phone); errMsg == "" {
			result.SMSSent = true
		} else {
			result.Errors = append(result.Errors, errMsg)
		}
	}

	return result, nil
}

func (d *Dispatcher) broadcastAdmins(ctx context.Context, req Request) (Result, error) {
	admins, err := d.customers.ListAdmins(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list admins: %w", err)
	}

	var result Result
	for i := range admins {
		admin := &admins[i]
		if admin.Email == "" {
			continue
		}
		if errMsg := d.attemptEmail(ctx, req, admin.ID, admin.Email); errMsg == "" {
			result.EmailSent = true
		} else {
			result.Errors = append(result.Errors, errMsg)
		}
	}
	return result, nil
}

// attemptEmail sends one email and writes its log row. Returns "" on success
// or the aggregate-error string on failure.
func (d *Dispatcher) attemptEmail(ctx context.Context, req Request, customerID uuid.UUID, address string) string {
	subject := req.Subject
	if subject == "" {
		subject = defaultSubject
	}

	html := d.renderEmail(ctx, req, subject)

	externalID, err := d.email.Send(ctx, Email{To: address, Subject: subject, HTML: html})

	entry := &model.NotificationLog{
		CustomerID:         customerID,
		Channel:            model.ChannelEmail,
		Event:              req.Event,
		RecipientEmail:     address,
		Subject:            subject,
		Message:            req.Message,
		Status:             model.NotificationSent,
		ExternalID:         externalID,
		JobID:              req.JobID,
		DeliveryScheduleID: req.DeliveryScheduleID,
	}
	if err != nil {
		entry.Status = model.NotificationFailed
		entry.ErrorMessage = err.Error()
	}
	d.logAttempt(ctx, entry)

	if err != nil {
		return fmt.Sprintf("Email failed: %v", err)
	}
	return ""
}

func (d *Dispatcher) attemptSMS(ctx context.Context, req Request, customerID uuid.UUID, phone string) string {
	to := NormalizePhone(phone, d.countryCode)

	externalID, err := d.sms.Send(ctx, to, req.Message)

	entry := &model.NotificationLog{
		CustomerID:         customerID,
		Channel:            model.ChannelSMS,
		Event:              req.Event,
		RecipientPhone:     to,
		Message:            req.Message,
		Status:             model.NotificationSent,
		ExternalID:         externalID,
		JobID:              req.JobID,
		DeliveryScheduleID: req.DeliveryScheduleID,
	}
	if err != nil {
		entry.Status = model.NotificationFailed
		entry.ErrorMessage = err.Error()
	}
	d.logAttempt(ctx, entry)

	if err != nil {
		return fmt.Sprintf("SMS failed: %v", err)
	}
	return ""
}

// renderEmail returns the rich job-progress body for job submission and
// status updates when the job can be loaded, falling back to the plain
// message otherwise.
func (d *Dispatcher) renderEmail(ctx context.Context, req Request, subject string) string {
	if (req.Event == eventbus.EventStatusUpdated || req.Event == eventbus.EventJobSubmitted) && req.JobID != nil {
		job, err := d.jobs.GetByID(ctx, req.JobID.String())
		if err != nil {
			d.logger.Warn("job lookup failed, sending plain message",
				zap.String("job_id", req.JobID.String()),
				zap.Error(err))
		} else {
			statusName := job.Status
			if job.CurrentStatus != nil {
				statusName = job.CurrentStatus.Name
			}
			trackingURL := fmt.Sprintf("%s/track/%s", d.origin, job.TrackingCode)
			html, err := renderJobProgress(subject, req.Message, job.Title, statusName, job.TrackingCode, trackingURL)
			if err == nil {
				return html
			}
			d.logger.Warn("job progress template failed, sending plain message", zap.Error(err))
		}
	}

	html, err := renderPlain(req.Message)
	if err != nil {
		return req.Message
	}
	return html
}

// logAttempt is best-effort: a log-write failure is warned and swallowed so
// it can never mask or replace the delivery outcome.
func (d *Dispatcher) logAttempt(ctx context.Context, entry *model.NotificationLog) {
	metrics.Notifications.WithLabelValues(string(entry.Channel), entry.Status).Inc()

	if err := d.logs.Append(ctx, entry); err != nil {
		d.logger.Warn("failed to write notification log",
			zap.String("channel", string(entry.Channel)),
			zap.String("event", entry.Event),
			zap.Error(err))
	}
}
