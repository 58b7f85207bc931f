// Package audit records security-relevant events: Hawk authentication outcomes,
// scope denials, credential reloads and partner data access.
//
// Events are JSON documents with a uuid id. FileLogger appends them to a
// size-rotated audit.log, StructuredLogger sends them through the service
// logger, and MultiLogger combines destinations:
//
//	fileLogger, err := audit.NewFileLogger(audit.DefaultFileLoggerConfig())
//	auditor := audit.NewMultiLogger(fileLogger, audit.NewStructuredLogger(logger))
//
//	event := audit.NewEvent(audit.EventTypeAuthFailed, audit.EventStatusFailure).WithRequest(r)
//	event.CredentialID = "data-flow"
//	auditor.Log(ctx, event)
package audit
