package logging

import (
	"encoding/json"
	"log"
	"time"
)

type Fields struct {
	Service    string `json:"service"`
	RequestID  string `json:"request_id,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	MaterialID string `json:"material_id,omitempty"`
	CallerID   string `json:"caller_id,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

type entry struct {
	Fields
	Timestamp string `json:"timestamp"`
}

// Log writes one JSON line through the standard logger.
func Log(fields Fields) {
	data, err := json.Marshal(entry{Fields: fields, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		log.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	log.Print(string(data))
}

// Logger stamps every entry with a fixed service name.
type Logger struct {
	Service string
}

func New(service string) Logger {
	return Logger{Service: service}
}

func (l Logger) Log(fields Fields) {
	fields.Service = l.Service
	Log(fields)
}

func (l Logger) Info(step, message string) {
	l.Log(Fields{Step: step, Status: "ok", Message: message})
}

func (l Logger) Error(step string, err error, fields Fields) {
	fields.Step = step
	fields.Status = "error"
	if err != nil {
		fields.Error = err.Error()
	}
	l.Log(fields)
}
