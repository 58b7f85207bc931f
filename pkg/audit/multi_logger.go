package audit

import (
	"context"
	"errors"

	"github.com/exportwins/winsmi/pkg/observability"
)

// MultiLogger fans events out to several audit loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger writing to every destination in order
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log writes to all loggers; one failing does not stop the rest
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every logger
func (m *MultiLogger) Close() error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StructuredLogger emits audit events through the service logger
type StructuredLogger struct {
	logger *observability.Logger
}

// NewStructuredLogger creates an audit logger backed by logger
func NewStructuredLogger(logger *observability.Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger.WithField("audit", true)}
}

func (s *StructuredLogger) Log(_ context.Context, event *Event) error {
	fields := map[string]interface{}{
		"audit_id":   event.ID,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.CredentialID != "" {
		fields["credential_id"] = event.CredentialID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Path != "" {
		fields["path"] = event.Path
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	entry := s.logger.WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

func (s *StructuredLogger) Close() error { return nil }
