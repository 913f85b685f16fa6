package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/config"
	"github.com/printdesk/printdesk/pkg/model"
)

type fakeCustomerStore struct {
	customers map[string]*model.Customer
	admins    []model.Customer
}

func (f *fakeCustomerStore) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	customer, ok := f.customers[id]
	if !ok {
		return nil, errors.New("customer not found")
	}
	return customer, nil
}

func (f *fakeCustomerStore) ListAdmins(ctx context.Context) ([]model.Customer, error) {
	return f.admins, nil
}

type fakePrefStore struct {
	pref *model.NotificationPreference
	err  error
}

func (f *fakePrefStore) GetOrCreate(ctx context.Context, customerID string) (*model.NotificationPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pref, nil
}

type fakeJobStore struct {
	job *model.Job
	err error
}

func (f *fakeJobStore) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

type fakeLogStore struct {
	entries []model.NotificationLog
	err     error
}

func (f *fakeLogStore) Append(ctx context.Context, entry *model.NotificationLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeEmailSender struct {
	sent []Email
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, email Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, email)
	return "email-ext-1", nil
}

type fakeSMSSender struct {
	to  []string
	err error
}

func (f *fakeSMSSender) Send(ctx context.Context, to, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	return "sms-ext-1", nil
}

type fixture struct {
	dispatcher *Dispatcher
	customers  *fakeCustomerStore
	prefs      *fakePrefStore
	jobs       *fakeJobStore
	logs       *fakeLogStore
	email      *fakeEmailSender
	sms        *fakeSMSSender
	customerID uuid.UUID
}

func newFixture(pref *model.NotificationPreference) *fixture {
	customerID := uuid.New()
	if pref != nil {
		pref.CustomerID = customerID
	}
	customer := &model.Customer{
		ID:    customerID,
		Name:  "Kadiatu Kamara",
		Email: "kadiatu@example.com",
		Phone: "076123456",
	}
	f := &fixture{
		customers:  &fakeCustomerStore{customers: map[string]*model.Customer{customerID.String(): customer}},
		prefs:      &fakePrefStore{pref: pref},
		jobs:       &fakeJobStore{},
		logs:       &fakeLogStore{},
		email:      &fakeEmailSender{},
		sms:        &fakeSMSSender{},
		customerID: customerID,
	}
	f.dispatcher = NewDispatcher(f.customers, f.prefs, f.jobs, f.logs, f.email, f.sms, zap.NewNop(), config.NotifyConfig{
		PublicOrigin:       "https://printdesk.example.com",
		CountryCallingCode: "+232",
	})
	return f
}

func allOn() *model.NotificationPreference {
	return &model.NotificationPreference{
		EmailNotifications: true,
		SMSNotifications:   true,
		JobStatusUpdates:   true,
		DeliveryUpdates:    true,
	}
}

func TestDispatchBothChannels(t *testing.T) {
	f := newFixture(allOn())

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Subject:    "Your job moved forward",
		Message:    "Your job is now Processing",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if !result.EmailSent || !result.SMSSent {
		t.Fatalf("expected both channels sent, got %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if result.CustomerName != "Kadiatu Kamara" {
		t.Fatalf("expected customer name in result, got %q", result.CustomerName)
	}
	if len(f.logs.entries) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(f.logs.entries))
	}
	for _, entry := range f.logs.entries {
		if entry.Status != model.NotificationSent {
			t.Fatalf("expected sent status, got %q", entry.Status)
		}
	}
}

func TestDispatchEmailDisabledNeverAttemptsEmail(t *testing.T) {
	pref := allOn()
	pref.EmailNotifications = false
	f := newFixture(pref)

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Message:    "update",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if result.EmailSent {
		t.Fatal("email must not be attempted when email_notifications is off")
	}
	if len(f.email.sent) != 0 {
		t.Fatalf("expected no provider call, got %d", len(f.email.sent))
	}
	if !result.SMSSent {
		t.Fatal("sms should still be attempted independently")
	}
}

func TestDispatchUnknownEventFailsClosed(t *testing.T) {
	f := newFixture(allOn())

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "promotional_blast",
		Message:    "sale on flyers",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if result.EmailSent || result.SMSSent {
		t.Fatalf("unclassified events must disable both channels, got %+v", result)
	}
	if len(f.logs.entries) != 0 {
		t.Fatalf("skipped channels must not write log rows, got %d", len(f.logs.entries))
	}
}

func TestDispatchNormalizesPhone(t *testing.T) {
	f := newFixture(allOn())

	_, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Message:    "update",
		Channels:   ChannelsSMS,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(f.sms.to) != 1 || f.sms.to[0] != "+232076123456" {
		t.Fatalf("expected canonical +232076123456, got %v", f.sms.to)
	}
}

func TestDispatchEmailFailureDoesNotBlockSMS(t *testing.T) {
	f := newFixture(allOn())
	f.email.err = errors.New("provider unavailable")

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Message:    "update",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if result.EmailSent {
		t.Fatal("email must be reported failed")
	}
	if !result.SMSSent {
		t.Fatal("sms must still be attempted after email failure")
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "Email failed:") {
		t.Fatalf("expected one email error, got %v", result.Errors)
	}
	if !result.Success() {
		t.Fatal("partial success must count as success")
	}
	if len(f.logs.entries) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(f.logs.entries))
	}
	var failed, sent int
	for _, entry := range f.logs.entries {
		switch entry.Status {
		case model.NotificationFailed:
			failed++
			if entry.ErrorMessage == "" {
				t.Fatal("failed row must carry the provider error")
			}
		case model.NotificationSent:
			sent++
		}
	}
	if failed != 1 || sent != 1 {
		t.Fatalf("expected one failed and one sent row, got failed=%d sent=%d", failed, sent)
	}
}

func TestDispatchDeliveryEventGating(t *testing.T) {
	pref := allOn()
	pref.DeliveryUpdates = false
	f := newFixture(pref)

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "delivery_scheduled",
		Message:    "your order ships tomorrow",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if result.EmailSent || result.SMSSent {
		t.Fatalf("delivery events must respect delivery_updates, got %+v", result)
	}
}

func TestDispatchSkipsEmptyPhoneSilently(t *testing.T) {
	f := newFixture(allOn())
	f.customers.customers[f.customerID.String()].Phone = ""

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Message:    "update",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if result.SMSSent {
		t.Fatal("sms must be skipped without a phone number")
	}
	if len(result.Errors) != 0 {
		t.Fatalf("a missing contact value is not an error, got %v", result.Errors)
	}
}

func TestDispatchRichTemplateForJobEvents(t *testing.T) {
	f := newFixture(allOn())
	jobID := uuid.New()
	f.jobs.job = &model.Job{
		ID:           jobID,
		Title:        "Wedding invitations",
		Status:       "Printing",
		TrackingCode: "PD-AB12CD",
	}

	_, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Subject:    "Job update",
		Message:    "Your job is printing",
		Channels:   ChannelsEmail,
		JobID:      &jobID,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(f.email.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.email.sent))
	}
	body := f.email.sent[0].HTML
	if !strings.Contains(body, "Wedding invitations") {
		t.Fatal("rich body must include the job title")
	}
	if !strings.Contains(body, "https://printdesk.example.com/track/PD-AB12CD") {
		t.Fatal("rich body must include the tracking URL")
	}
	if !strings.Contains(body, "data:image/png;base64,") {
		t.Fatal("rich body must embed the scannable tracking image")
	}
}

func TestDispatchFallsBackToPlainOnJobLookupFailure(t *testing.T) {
	f := newFixture(allOn())
	f.jobs.err = errors.New("job not found")
	jobID := uuid.New()

	_, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "job_submitted",
		Message:    "We received your job",
		Channels:   ChannelsEmail,
		JobID:      &jobID,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(f.email.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.email.sent))
	}
	body := f.email.sent[0].HTML
	if !strings.Contains(body, "We received your job") {
		t.Fatal("plain fallback must carry the message")
	}
	if strings.Contains(body, "data:image/png") {
		t.Fatal("plain fallback must not embed a tracking image")
	}
}

func TestDispatchAdminBroadcast(t *testing.T) {
	f := newFixture(nil)
	f.customers.admins = []model.Customer{
		{ID: uuid.New(), Name: "Ops One", Email: "ops1@printdesk.example.com", Role: model.RoleAdmin},
		{ID: uuid.New(), Name: "Ops Two", Email: "ops2@printdesk.example.com", Role: model.RoleAdmin},
	}

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: AdminBroadcast,
		Event:      "admin_job_submitted",
		Subject:    "New job submitted",
		Message:    "A customer submitted a job",
		Channels:   ChannelsBoth,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if !result.EmailSent {
		t.Fatal("broadcast must report email sent")
	}
	if result.SMSSent {
		t.Fatal("broadcast never sends SMS")
	}
	if len(f.email.sent) != 2 {
		t.Fatalf("expected an email per admin, got %d", len(f.email.sent))
	}
	if len(f.logs.entries) != 2 {
		t.Fatalf("expected a log row per admin attempt, got %d", len(f.logs.entries))
	}
}

func TestDispatchUnknownCustomerIsAnError(t *testing.T) {
	f := newFixture(allOn())

	_, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: uuid.NewString(),
		Event:      "status_updated",
		Message:    "update",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown customer")
	}
}

func TestDispatchLogFailureIsSwallowed(t *testing.T) {
	f := newFixture(allOn())
	f.logs.err = errors.New("log table unavailable")

	result, err := f.dispatcher.Dispatch(context.Background(), Request{
		CustomerID: f.customerID.String(),
		Event:      "status_updated",
		Message:    "update",
		Channels:   ChannelsEmail,
	})
	if err != nil {
		t.Fatalf("log failure must never propagate: %v", err)
	}
	if !result.EmailSent {
		t.Fatal("delivery outcome must survive a log-write failure")
	}
}
