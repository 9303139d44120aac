package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/framelink/internal/api/models"
	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/device"
)

// registerCaptureRoutes registers capture status and control routes.
func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture-status",
		Method:      http.MethodGet,
		Path:        "/api/capture/status",
		Summary:     "Capture Status",
		Description: "Get the state of the capture session on the active device",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		status, err := s.status()
		if err != nil {
			return nil, err
		}
		return &models.CaptureStatusResponse{Body: status}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/start",
		Summary:     "Start Capture",
		Description: "Enable input (and output when available) in the given display mode and start streaming",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422, 500},
	}, func(_ context.Context, input *models.CaptureStartRequest) (*models.CaptureActionResponse, error) {
		mode := device.ModeUnknown
		if input.Body.Mode != "" {
			parsed, err := device.ParseDisplayMode(input.Body.Mode)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("Unknown display mode", err)
			}
			mode = parsed
		}

		if err := s.capture.Start(mode); err != nil {
			return nil, s.captureError("Failed to start capture", err)
		}
		return s.actionResponse("start")
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/stop",
		Summary:     "Stop Capture",
		Description: "Stop streaming and output. Safe to call when already stopped",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureActionResponse, error) {
		if err := s.capture.Stop(); err != nil {
			return nil, s.captureError("Failed to stop capture", err)
		}
		return s.actionResponse("stop")
	})
}

func (s *Server) status() (capture.Status, error) {
	if s.capture == nil {
		return capture.Status{}, huma.Error404NotFound("No capture device")
	}
	status, ok := s.capture.Status()
	if !ok {
		return capture.Status{}, huma.Error404NotFound("No capture device")
	}
	return status, nil
}

func (s *Server) actionResponse(action string) (*models.CaptureActionResponse, error) {
	status, err := s.status()
	if err != nil {
		return nil, err
	}
	return &models.CaptureActionResponse{
		Body: models.CaptureActionData{
			Action: action,
			State:  string(status.State),
		},
	}, nil
}

func (s *Server) captureError(msg string, err error) error {
	switch {
	case errors.Is(err, capture.ErrNoDevice):
		return huma.Error404NotFound("No capture device", err)
	case errors.Is(err, capture.ErrClosed):
		return huma.Error404NotFound("Capture device was removed", err)
	default:
		s.logger.Warn(msg, "error", err)
		return huma.Error500InternalServerError(msg, err)
	}
}
