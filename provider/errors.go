package provider

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/modelroute/llmrouter/rerrors"
)

// MapHTTPError converts an HTTP status code and response body into the
// router's error taxonomy. Grounded on the teacher's HTTP-status-to-error
// mapping, generalized from one provider family to the router's full
// taxonomy.
func MapHTTPError(status int, body, providerID string) *rerrors.Error {
	switch status {
	case 401:
		return rerrors.New(rerrors.CodeAuthentication, body).
			WithHTTPStatus(status).WithFallback(true).WithProvider(providerID)
	case 403:
		return rerrors.New(rerrors.CodeForbidden, body).
			WithHTTPStatus(status).WithProvider(providerID)
	case 404:
		return rerrors.New(rerrors.CodeNotFound, body).
			WithHTTPStatus(status).WithProvider(providerID)
	case 408:
		return rerrors.New(rerrors.CodeRequestTimeout, body).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(providerID)
	case 429:
		return rerrors.New(rerrors.CodeRateLimited, body).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(providerID)
	case 400:
		switch {
		case containsQuotaKeyword(body):
			return rerrors.New(rerrors.CodeContextWindowExceeded, body).
				WithHTTPStatus(status).WithFallback(true).WithProvider(providerID)
		case containsContentPolicyKeyword(body):
			return rerrors.New(rerrors.CodeContentPolicy, body).
				WithHTTPStatus(status).WithFallback(true).WithProvider(providerID)
		default:
			return rerrors.New(rerrors.CodeInvalidRequest, body).
				WithHTTPStatus(status).WithProvider(providerID)
		}
	case 502, 503, 504:
		return rerrors.New(rerrors.CodeConnection, body).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(providerID)
	default:
		return rerrors.New(rerrors.CodeInternalServer, body).
			WithHTTPStatus(status).WithRetryable(status >= 500).WithProvider(providerID)
	}
}

func containsQuotaKeyword(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "context_length") || strings.Contains(lower, "maximum context")
}

func containsContentPolicyKeyword(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "content_policy") || strings.Contains(lower, "content management policy") ||
		strings.Contains(lower, "safety system")
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ReadErrorMessage extracts a human-readable message from a provider error
// response, preferring the OpenAI-style {"error":{"message":...}} shape and
// falling back to the raw body.
func ReadErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(data)
}
