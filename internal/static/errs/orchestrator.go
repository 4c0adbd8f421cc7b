package errs

import "errors"

var (
	ErrProvisioning        = errors.New("instance provisioning failed")
	ErrProvisioningTimeout = errors.New("instance readiness timed out")
	ErrQuotaExhausted      = errors.New("judge call quota exhausted")
	ErrRateLimitExceeded   = errors.New("judge rate limit exceeded after retries")
	ErrRequestTimeout      = errors.New("judge request timed out after retries")
	ErrMonitoringTimeout   = errors.New("batch monitoring timed out")
	ErrShutdownFailed      = errors.New("session shutdown failed, manual intervention required")
)

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionNotReady       = errors.New("session is not ready")
	ErrInvalidParticipants   = errors.New("expected participants must be positive")
	ErrInvalidDuration       = errors.New("session duration outside allowed range")
	ErrProbeAlreadyRunning   = errors.New("readiness probe already running for session")
	ErrIllegalTransition     = errors.New("illegal session state transition")
	ErrShutdownNotPermitted  = errors.New("session cannot be shut down before readiness")
	ErrNoTestCases           = errors.New("problem has no test cases")
)

// Markers used by the judge adapter to classify transient backend responses.
var (
	ErrRateLimited        = errors.New("judge backend rate limited")
	ErrBackendUnavailable = errors.New("judge backend temporarily unavailable")
)
