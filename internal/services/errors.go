package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the pipeline failure taxonomy. Stage code wraps every
// failure with exactly one marker so the orchestrator can classify it without
// string matching.
var (
	// ErrUnidentifiedCamera means no camera profile matched the mounted volume.
	ErrUnidentifiedCamera = errors.New("unidentified camera")
	// ErrCollision means the destination day-folder already exists.
	ErrCollision = errors.New("destination collision")
	// ErrNoDestination means neither the network store nor local staging is usable.
	ErrNoDestination = errors.New("no destination available")
	// ErrTransfer marks I/O or network failures during copy; transient, retried.
	ErrTransfer = errors.New("transfer failure")
	// ErrVerification means a post-transfer digest or size reconciliation failed.
	ErrVerification = errors.New("verification failure")
	// ErrCleanup means source deletion failed after a verified transfer.
	ErrCleanup = errors.New("cleanup failure")
	// ErrConfiguration marks unusable configuration or profile data.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransfer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the stable failure-kind label emitted in diagnostics
// and notifications.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnidentifiedCamera):
		return "UnidentifiedCamera"
	case errors.Is(err, ErrCollision):
		return "CollisionError"
	case errors.Is(err, ErrNoDestination):
		return "NoDestinationAvailable"
	case errors.Is(err, ErrVerification):
		return "VerificationError"
	case errors.Is(err, ErrCleanup):
		return "CleanupError"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	default:
		return "TransferError"
	}
}

// Retryable reports whether the orchestrator may retry the failed stage.
// Only transfer failures are transient; every other kind is deterministic
// until an operator intervenes.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range []error{
		ErrUnidentifiedCamera,
		ErrCollision,
		ErrNoDestination,
		ErrVerification,
		ErrCleanup,
		ErrConfiguration,
	} {
		if errors.Is(err, marker) {
			return false
		}
	}
	return true
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
