package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"

	qrcode "github.com/skip2/go-qrcode"
)

var jobProgressTemplate = template.Must(template.New("job_progress").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937; max-width: 560px; margin: 0 auto;">
  <h2 style="color: #111827;">{{.Headline}}</h2>
  <p>{{.Message}}</p>
  <table style="border-collapse: collapse; width: 100%; margin: 16px 0;">
    <tr>
      <td style="padding: 6px 12px; border: 1px solid #e5e7eb; font-weight: bold;">Job</td>
      <td style="padding: 6px 12px; border: 1px solid #e5e7eb;">{{.JobTitle}}</td>
    </tr>
    <tr>
      <td style="padding: 6px 12px; border: 1px solid #e5e7eb; font-weight: bold;">Status</td>
      <td style="padding: 6px 12px; border: 1px solid #e5e7eb;">{{.StatusName}}</td>
    </tr>
    <tr>
      <td style="padding: 6px 12px; border: 1px solid #e5e7eb; font-weight: bold;">Tracking code</td>
      <td style="padding: 6px 12px; border: 1px solid #e5e7eb;">{{.TrackingCode}}</td>
    </tr>
  </table>
  <p>Track your job at <a href="{{.TrackingURL}}">{{.TrackingURL}}</a> or scan:</p>
  <img src="{{.QRCode}}" alt="tracking QR code" width="160" height="160" />
</body>
</html>
`))

var plainTemplate = template.Must(template.New("plain").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937; max-width: 560px; margin: 0 auto;">
  <p>{{.Message}}</p>
</body>
</html>
`))

type jobProgressData struct {
	Headline     string
	Message      string
	JobTitle     string
	StatusName   string
	TrackingCode string
	TrackingURL  string
	QRCode       template.URL
}

// renderJobProgress builds the rich job-update email body with an embedded
// scannable image of the tracking link.
func renderJobProgress(headline, message, jobTitle, statusName, trackingCode, trackingURL string) (string, error) {
	png, err := qrcode.Encode(trackingURL, qrcode.Medium, 160)
	if err != nil {
		return "", fmt.Errorf("encode tracking qr: %w", err)
	}

	data := jobProgressData{
		Headline:     headline,
		Message:      message,
		JobTitle:     jobTitle,
		StatusName:   statusName,
		TrackingCode: trackingCode,
		TrackingURL:  trackingURL,
		QRCode:       template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
	}

	var buf bytes.Buffer
	if err := jobProgressTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render job progress template: %w", err)
	}
	return buf.String(), nil
}

func renderPlain(message string) (string, error) {
	var buf bytes.Buffer
	if err := plainTemplate.Execute(&buf, struct{ Message string }{Message: message}); err != nil {
		return "", fmt.Errorf("render plain template: %w", err)
	}
	return buf.String(), nil
}
