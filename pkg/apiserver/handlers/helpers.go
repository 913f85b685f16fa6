package handlers

import (
	"crypto/rand"
	"strconv"
	"time"
)

const timeRFC3339 = time.RFC3339

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeRFC3339)
}

// trackingAlphabet avoids 0/O, 1/I/L so codes survive being read aloud over
// the counter.
const trackingAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func newTrackingCode() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = trackingAlphabet[int(b[i])%len(trackingAlphabet)]
	}
	return "PD-" + string(b)
}
