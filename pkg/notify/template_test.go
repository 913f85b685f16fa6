package notify

import (
	"strings"
	"testing"
)

func TestRenderJobProgressEscapesAndEmbeds(t *testing.T) {
	html, err := renderJobProgress(
		"Job update",
		"Now printing",
		`Posters <script>alert("x")</script>`,
		"Printing",
		"PD-AB12CD",
		"https://printdesk.example.com/track/PD-AB12CD",
	)
	if err != nil {
		t.Fatalf("renderJobProgress() error: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Fatal("job title must be HTML-escaped")
	}
	if !strings.Contains(html, "PD-AB12CD") {
		t.Fatal("body must include the tracking code")
	}
	if !strings.Contains(html, `src="data:image/png;base64,`) {
		t.Fatal("body must embed the QR image as a data URI")
	}
	if !strings.Contains(html, `href="https://printdesk.example.com/track/PD-AB12CD"`) {
		t.Fatal("body must link the tracking URL")
	}
}

func TestRenderPlain(t *testing.T) {
	html, err := renderPlain("Your delivery is on its way")
	if err != nil {
		t.Fatalf("renderPlain() error: %v", err)
	}
	if !strings.Contains(html, "Your delivery is on its way") {
		t.Fatal("plain body must carry the message")
	}
}
