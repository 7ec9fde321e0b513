package ai

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Message codes returned by Classify.
const (
	CodeNetwork    = "ai_network_error"
	CodeInvalidKey = "ai_invalid_key"
	CodeClient     = "ai_client_error"
	CodeServer     = "ai_server_error"
	CodeUnknown    = "ai_unknown_error"
)

// Classify maps an AI failure to a user-facing message code. It returns ""
// for a nil error.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingKey) {
		return CodeInvalidKey
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "api key") || strings.Contains(msg, "api_key") || strings.Contains(msg, "invalid key") {
		return CodeInvalidKey
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return CodeInvalidKey
		case apiErr.StatusCode >= 500:
			return CodeServer
		case apiErr.StatusCode >= 400:
			return CodeClient
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return CodeNetwork
	}
	for _, s := range []string{"network", "connection", "no such host", "timeout", "failed to fetch", "failed to send request"} {
		if strings.Contains(msg, s) {
			return CodeNetwork
		}
	}
	switch {
	case strings.Contains(msg, "status 5"):
		return CodeServer
	case strings.Contains(msg, "status 4"):
		return CodeClient
	}
	return CodeUnknown
}
