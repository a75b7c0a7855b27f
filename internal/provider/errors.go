package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

// Error message prefixes. Adapters never return Go errors for request-level
// failures: they return a string bearing one of these prefixes, which the
// chat manager uses both for display and to detect failed turns.
const (
	PrefixConfigurationError  = "Configuration error:"
	PrefixAuthenticationError = "Authentication error:"
	PrefixRateLimitError      = "Rate limit exceeded:"
	PrefixTimeoutError        = "Request timeout:"
	PrefixConnectionError     = "Connection error:"
	PrefixBadRequestError     = "Bad request:"
	PrefixAPIError            = "API error:"
	PrefixUnexpectedError     = "Unexpected error:"
)

var errorPrefixes = []string{
	PrefixConfigurationError,
	PrefixAuthenticationError,
	PrefixRateLimitError,
	PrefixTimeoutError,
	PrefixConnectionError,
	PrefixBadRequestError,
	PrefixAPIError,
	PrefixUnexpectedError,
}

// IsErrorText reports whether text carries one of the recognized error
// prefixes and therefore represents a failed turn.
func IsErrorText(text string) bool {
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// modelNotConfigured formats the configuration error for an unknown model.
func modelNotConfigured(providerID, modelID string) string {
	return fmt.Sprintf("%s model %q is not configured for provider %s", PrefixConfigurationError, modelID, providerID)
}

// classifyOpenAIError maps a go-openai failure into the coarse taxonomy.
func classifyOpenAIError(err error) string {
	if msg, ok := classifyTransportError(err); ok {
		return msg
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}

	return fmt.Sprintf("%s %v. Please try again or check the logs for details.", PrefixUnexpectedError, err)
}

// classifyAnthropicError maps an anthropic-sdk-go failure into the coarse
// taxonomy.
func classifyAnthropicError(err error) string {
	if msg, ok := classifyTransportError(err); ok {
		return msg
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		// Error() formats from the originating request and response, which
		// are nil on values not produced by the SDK transport.
		detail := apiErr.RawJSON()
		if apiErr.Request != nil && apiErr.Response != nil {
			detail = apiErr.Error()
		}
		return classifyStatus(apiErr.StatusCode, detail)
	}

	return fmt.Sprintf("%s %v. Please try again or check the logs for details.", PrefixUnexpectedError, err)
}

// classifyTransportError handles failures raised below the HTTP layer:
// client deadlines, DNS, TCP, TLS.
func classifyTransportError(err error) (string, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return PrefixTimeoutError + " the server took too long to respond. Please try again later.", true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return PrefixTimeoutError + " the server took too long to respond. Please try again later.", true
		}
		return PrefixConnectionError + " could not reach the provider. Please check your network connection.", true
	}

	return "", false
}

// classifyStatus maps an HTTP status code from a provider error response.
func classifyStatus(status int, detail string) string {
	switch {
	case status == 401 || status == 403:
		return PrefixAuthenticationError + " invalid API key or credentials. Please check your API key configuration."
	case status == 429:
		return PrefixRateLimitError + " too many requests. Please try again later or reduce the request frequency."
	case status == 408 || status == 504:
		return PrefixTimeoutError + " the server took too long to respond. Please try again later."
	case status >= 400 && status < 500:
		return fmt.Sprintf("%s %s. Please check input parameters and format.", PrefixBadRequestError, detail)
	default:
		return fmt.Sprintf("%s %s. Please try again later.", PrefixAPIError, detail)
	}
}

// isRetryable reports whether a blocking completion should be retried. Only
// transient transport failures and throttling qualify.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}

	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return oaErr.HTTPStatusCode == 429 || oaErr.HTTPStatusCode >= 500
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode == 429 || antErr.StatusCode >= 500
	}

	return false
}
