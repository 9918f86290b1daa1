package rcon

import (
	"context"
	"errors"
	"net"
	"os"
	"regexp"
	"strings"
	"syscall"

	gorcon "github.com/gorcon/rcon"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// ClassifyTransport maps a dial, auth or I/O error to a stable category.
// Unclassified errors keep their original message.
func ClassifyTransport(err error) (domain.ErrorCategory, string) {
	if err == nil {
		return domain.CategoryNone, ""
	}

	switch {
	case errors.Is(err, gorcon.ErrAuthFailed):
		return domain.CategoryAuthenticationFailed, "RCON password rejected"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return domain.CategoryTimeout, "timed out waiting for server"
	case errors.Is(err, syscall.ECONNREFUSED):
		return domain.CategoryConnectionRefused, "connection refused (server offline or RCON disabled)"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return domain.CategoryConnectionRefused, "server unreachable"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.CategoryConnectionRefused, "cannot resolve host " + dnsErr.Name
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.CategoryTimeout, "timed out waiting for server"
	}

	return domain.CategoryUnknown, err.Error()
}

// Classifier decides whether a transport-level success is really a
// command-level failure. message is only meaningful when failed is true.
type Classifier interface {
	Classify(response string, platform domain.Platform) (message string, failed bool)
}

const (
	msgUnrecognized        = "unrecognized command"
	msgPlatformUnsupported = "target lacks support for this player platform"
	msgBadSyntax           = "invalid command syntax - check configured command template"
)

// DefaultMarkers is the vocabulary of vanilla, Paper and Floodgate servers.
// Order matters: the first marker found decides the message.
func DefaultMarkers() []domain.ResponseMarker {
	return []domain.ResponseMarker{
		{Text: "unknown", Message: msgUnrecognized, BedrockMessage: msgPlatformUnsupported},
		{Text: "usage:", Message: msgBadSyntax},
		{Text: "error"},
		{Text: "failed"},
		{Text: "invalid"},
		{Text: "not found"},
	}
}

var (
	// Brigadier points at the offending token with "<--[HERE]".
	positionMarker = regexp.MustCompile(`<--\[HERE\]`)
	// Legacy section-sign formatting codes.
	colorCodes = regexp.MustCompile(`§[0-9a-fk-orA-FK-OR]`)
	spaces     = regexp.MustCompile(`[ \t]+`)
)

// MarkerClassifier scans the lower-cased response for substrings.
type MarkerClassifier struct {
	markers []domain.ResponseMarker
}

// NewMarkerClassifier builds a classifier over markers. Entries with blank
// text are dropped; if none remain, DefaultMarkers is used.
func NewMarkerClassifier(markers []domain.ResponseMarker) *MarkerClassifier {
	normalized := normalizeMarkers(markers)
	if len(normalized) == 0 {
		normalized = normalizeMarkers(DefaultMarkers())
	}
	return &MarkerClassifier{markers: normalized}
}

func normalizeMarkers(markers []domain.ResponseMarker) []domain.ResponseMarker {
	normalized := make([]domain.ResponseMarker, 0, len(markers))
	for _, m := range markers {
		m.Text = strings.ToLower(strings.TrimSpace(m.Text))
		if m.Text == "" {
			continue
		}
		normalized = append(normalized, m)
	}
	return normalized
}

func (c *MarkerClassifier) Classify(response string, platform domain.Platform) (string, bool) {
	lower := strings.ToLower(response)
	for _, m := range c.markers {
		if !strings.Contains(lower, m.Text) {
			continue
		}
		if platform == domain.Bedrock && m.BedrockMessage != "" {
			return m.BedrockMessage, true
		}
		if m.Message != "" {
			return m.Message, true
		}
		return CleanResponse(response), true
	}
	return "", false
}

// CleanResponse strips protocol decoration from a server reply.
func CleanResponse(response string) string {
	cleaned := positionMarker.ReplaceAllString(response, "")
	cleaned = colorCodes.ReplaceAllString(cleaned, "")

	lines := strings.Split(cleaned, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(response)
	}
	return strings.Join(kept, " ")
}
