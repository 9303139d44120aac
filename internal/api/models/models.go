package models

import (
	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/logging"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-09T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Capture models
type CaptureStatusResponse struct {
	Body capture.Status
}

type CaptureStartData struct {
	Mode string `json:"mode,omitempty" example:"1080p30" doc:"Display mode to capture; empty uses the configured mode"`
}

type CaptureStartRequest struct {
	Body CaptureStartData
}

type CaptureActionData struct {
	Action string `json:"action" example:"start" doc:"Action performed"`
	State  string `json:"state" example:"capturing" doc:"Session state after the action"`
}

type CaptureActionResponse struct {
	Body CaptureActionData
}

// Log models
type LogsRequest struct {
	Limit int `query:"limit" default:"100" minimum:"0" maximum:"1000" doc:"Number of most recent entries; 0 returns everything buffered"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int                `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
