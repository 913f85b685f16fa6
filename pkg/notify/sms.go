package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/printdesk/printdesk/pkg/config"
)

type SMSSender interface {
	Send(ctx context.Context, to, message string) (externalID string, err error)
}

type TwilioSender struct {
	client *twilio.RestClient
	sender string
}

func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, sender: cfg.SenderID}
}

func (s *TwilioSender) Send(ctx context.Context, to, message string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.sender)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}

	// The gateway can accept the request and still report a failed recipient
	// status; treat that as a delivery failure.
	if resp.Status != nil && (*resp.Status == "failed" || *resp.Status == "undelivered") {
		reason := ""
		if resp.ErrorMessage != nil {
			reason = *resp.ErrorMessage
		}
		return "", fmt.Errorf("message %s: %s", *resp.Status, reason)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	return sid, nil
}
