package events

// Event type constants for kelindar/event.
const (
	TypeCaptureStateChanged uint32 = iota + 1
	TypeFormatChanged
	TypeOutputDegraded
	TypeDeviceDiscovery
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureStateChangedEvent is published on every capture session transition.
type CaptureStateChangedEvent struct {
	DeviceID  string `json:"device_id" example:"video0" doc:"Device the session is bound to"`
	From      string `json:"from" example:"idle" doc:"Previous state"`
	To        string `json:"to" example:"capturing" doc:"New state"`
	Reason    string `json:"reason,omitempty" example:"start" doc:"What caused the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateChangedEvent.
func (e CaptureStateChangedEvent) Type() uint32 { return TypeCaptureStateChanged }

// FormatChangedEvent reports a detected input signal change and whether the
// session accepted it.
type FormatChangedEvent struct {
	DeviceID    string `json:"device_id" example:"video0" doc:"Device that detected the change"`
	Width       int    `json:"width" example:"1920" doc:"Detected frame width"`
	Height      int    `json:"height" example:"1080" doc:"Detected frame height"`
	Mode        string `json:"mode" example:"1080p30" doc:"Detected display mode"`
	PixelFormat string `json:"pixel_format,omitempty" example:"yuv" doc:"Pixel format selected for the signal"`
	Accepted    bool   `json:"accepted" example:"true" doc:"False when the signal does not match the configured target"`
	Error       string `json:"error,omitempty" doc:"Failure detail when the change was not applied"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FormatChangedEvent.
func (e FormatChangedEvent) Type() uint32 { return TypeFormatChanged }

// OutputDegradedEvent is published when the device output stops being used
// and capture continues input-only.
type OutputDegradedEvent struct {
	DeviceID  string `json:"device_id" example:"video0" doc:"Device whose output was disabled"`
	Error     string `json:"error" example:"output not supported" doc:"Failure that disabled output"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for OutputDegradedEvent.
func (e OutputDegradedEvent) Type() uint32 { return TypeOutputDegraded }

// DeviceDiscoveryEvent represents a hot-plug arrival or removal.
type DeviceDiscoveryEvent struct {
	DeviceID  string `json:"device_id" example:"video0" doc:"Device identifier"`
	Name      string `json:"name" example:"HDMI capture" doc:"Human readable device name"`
	Action    string `json:"action" example:"added" doc:"Action type: added, removed"`
	Active    bool   `json:"active" example:"true" doc:"Whether discovery now holds this device"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
