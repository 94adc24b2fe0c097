package logger

import (
	"github.com/ThreeDotsLabs/watermill"
)

// WatermillAdapter routes watermill's logs into an ILogger under one module name.
type WatermillAdapter struct {
	log    ILogger
	module string
	fields watermill.LogFields
}

func NewWatermillAdapter(log ILogger, module string) *WatermillAdapter {
	return &WatermillAdapter{log: log, module: module}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	details := a.details(fields)
	if err != nil {
		details["error"] = err.Error()
	}
	a.log.Error(a.module, msg, details)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(a.module, msg, a.details(fields))
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(a.module, msg, a.details(fields))
}

// Trace is too chatty for the application log and maps to Debug.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(a.module, msg, a.details(fields))
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{log: a.log, module: a.module, fields: a.fields.Add(fields)}
}

func (a *WatermillAdapter) details(fields watermill.LogFields) map[string]interface{} {
	details := make(map[string]interface{}, len(a.fields)+len(fields)+1)
	for k, v := range a.fields {
		details[k] = v
	}
	for k, v := range fields {
		details[k] = v
	}
	return details
}
