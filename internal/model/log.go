package model

import "time"

type LogKind string

const (
	LogInfo    LogKind = "info"
	LogError   LogKind = "error"
	LogSuccess LogKind = "success"
)

// LogEvent is the only unit a deployment run hands back to its caller.
type LogEvent struct {
	Message   string    `json:"message"`
	Kind      LogKind   `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
