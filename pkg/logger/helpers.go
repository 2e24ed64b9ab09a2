package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPageProgress logs one fetched page of a validator listing
func LogPageProgress(l Logger, chainID string, page, identities int) {
	l.InfoWithFields("validator page processed", map[string]interface{}{
		"chain_id":   chainID,
		"page":       page,
		"identities": identities,
	})
}

// LogEndpointDone logs the end of one endpoint walk
func LogEndpointDone(l Logger, chainID string, pages, identities int, err error) {
	fields := map[string]interface{}{
		"chain_id":   chainID,
		"pages":      pages,
		"identities": identities,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("endpoint walk aborted", fields)
		return
	}
	l.InfoWithFields("endpoint walk complete", fields)
}

// LogResolution logs the outcome of one identity lookup
func LogResolution(l Logger, identity, imageURL string, err error) {
	if err != nil {
		l.WithError(err).WarnWithFields("identity unresolvable", map[string]interface{}{
			"identity": identity,
		})
		return
	}
	l.DebugWithFields("identity resolved", map[string]interface{}{
		"identity":  identity,
		"image_url": imageURL,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("component started", config)
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.InfoWithFields("component stopped", map[string]interface{}{
		"component": component,
		"reason":    reason,
	})
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
