package bedrock

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"bedrock-loadtest/internal/loadtest"
)

// ClassifyError maps an AWS error onto the harness error taxonomy and
// returns it wrapped as a classified error. Modeled service exceptions
// are matched by their API error code, which covers both the runtime and
// the agent runtime services; anything unmodeled falls back to message
// matching.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	return loadtest.NewClassifiedError(classifyKind(err), err)
}

func classifyKind(err error) loadtest.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return loadtest.ErrorKindTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException",
			"TooManyRequestsException",
			"ServiceQuotaExceededException",
			"ProvisionedThroughputExceededException":
			return loadtest.ErrorKindThrottled
		case "InternalServerException",
			"ServiceUnavailableException",
			"ModelTimeoutException",
			"ModelErrorException",
			"ModelNotReadyException",
			"DependencyFailedException",
			"BadGatewayException":
			return loadtest.ErrorKindService
		case "ValidationException",
			"AccessDeniedException",
			"ResourceNotFoundException",
			"UnrecognizedClientException",
			"ExpiredTokenException":
			return loadtest.ErrorKindValidation
		}
	}

	// Fall back to message matching for errors without a modeled code.
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "too many") ||
		strings.Contains(errStr, "quota"):
		return loadtest.ErrorKindThrottled
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return loadtest.ErrorKindTimeout
	case strings.Contains(errStr, "validation") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "not found"):
		return loadtest.ErrorKindValidation
	case strings.Contains(errStr, "internal") || strings.Contains(errStr, "unavailable"):
		return loadtest.ErrorKindService
	default:
		return loadtest.ErrorKindUnknown
	}
}
