package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/types"
)

// Command represents a control plane command
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a command response
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// Client is the part of mqtt.Client the handler uses.
type Client interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
}

// Session is the scan session surface exposed to remote commands.
type Session interface {
	StartScanning() error
	StopScanning() error
	StopScanningAndKeepTorchState() error
	IsScanning() bool
	SwitchTorchOn(on bool) bool
	TorchOn() bool
	ChangeToCameraFacing(f types.Facing) (bool, error)
	SwitchCameraFacing() (bool, error)
	CameraFacing() types.Facing
	ForceRelease()
	DisableStandbyState()
	Set1DScanningEnabled(on bool)
	Set2DScanningEnabled(on bool)
	SetSymbologyEnabled(sym types.Symbology, on bool) error
	SetMsiPlesseyChecksumType(m types.MsiChecksum) error
	SetInverseDetectionEnabled(on bool)
	SetMicroDataMatrixEnabled(on bool)
	Force2DRecognition(on bool)
	SetScanningHotSpot(x, y float64) error
	SetScanningHotSpotHeight(h float64) error
	RestrictActiveScanningArea(on bool)
	SendNextFrameToDelegate(d types.NextFrameDelegate)
}

// Callbacks contains the commands served outside the session
type Callbacks struct {
	OnGetStatus func() map[string]interface{}
	OnShutdown  func() error
	// Capture receives frames requested by capture_frame.
	Capture types.NextFrameDelegate
}

// Handler handles control plane commands
type Handler struct {
	topic         string
	qos           byte
	responseTopic string
	responseQoS   byte

	client    Client
	session   Session
	callbacks Callbacks
	logger    *slog.Logger

	commands chan Command
}

// NewHandler creates a new control plane handler
func NewHandler(cfg *config.Config, client Client, session Session, callbacks Callbacks, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		topic:         cfg.MQTT.Topics.Control,
		qos:           cfg.MQTT.QoS["control"],
		responseTopic: cfg.MQTT.Topics.Health,
		responseQoS:   cfg.MQTT.QoS["health"],
		client:        client,
		session:       session,
		callbacks:     callbacks,
		logger:        logger,
		commands:      make(chan Command, 10),
	}
}

// Start subscribes to the control topic and processes commands until ctx is
// done or Stop is called.
func (h *Handler) Start(ctx context.Context) error {
	h.logger.Info("control: subscribing to control plane", "topic", h.topic, "qos", h.qos)

	token := h.client.Subscribe(h.topic, h.qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control plane subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control plane subscription failed: %w", err)
	}

	go h.processCommands(ctx)

	h.logger.Info("control: handler started")
	return nil
}

// Stop unsubscribes and ends command processing
func (h *Handler) Stop() error {
	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(h.topic)
		token.WaitTimeout(2 * time.Second)
	}
	close(h.commands)

	h.logger.Info("control: handler stopped")
	return nil
}

// messageHandler is called by the MQTT client when a control message arrives
func (h *Handler) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	h.enqueue(msg.Payload())
}

func (h *Handler) enqueue(payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		h.logger.Error("control: failed to parse command", "error", err)
		h.sendResponse(Response{
			CommandAck: "unknown",
			Status:     "error",
			Error:      "invalid JSON",
		})
		return
	}

	h.logger.Info("control: command received", "command", cmd.Command)

	select {
	case h.commands <- cmd:
	default:
		h.logger.Warn("control: command queue full, dropping command", "command", cmd.Command)
	}
}

// processCommands processes commands from the queue
func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-h.commands:
			if !ok {
				return
			}
			if resp, send := h.handleCommand(cmd); send {
				h.sendResponse(resp)
			}
		}
	}
}

// handleCommand executes a command. send is false when the response was
// already published.
func (h *Handler) handleCommand(cmd Command) (resp Response, send bool) {
	resp.CommandAck = cmd.Command
	s := h.session

	switch cmd.Command {
	case "get_status":
		if h.callbacks.OnGetStatus == nil {
			return fail(resp, "get_status not implemented"), true
		}
		resp.Status = "success"
		resp.Data = h.callbacks.OnGetStatus()

	case "start_scanning":
		if err := s.StartScanning(); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"scanning": s.IsScanning()})

	case "stop_scanning":
		if err := s.StopScanning(); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"scanning": s.IsScanning(), "torch": s.TorchOn()})

	case "stop_keep_torch":
		if err := s.StopScanningAndKeepTorchState(); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"scanning": s.IsScanning(), "torch": s.TorchOn()})

	case "switch_torch":
		on, okParam := cmd.Params["on"].(bool)
		if !okParam {
			return fail(resp, "missing or invalid 'on' parameter (expected bool)"), true
		}
		if !s.SwitchTorchOn(on) {
			return fail(resp, "torch not available"), true
		}
		resp = ok(resp, map[string]interface{}{"torch": s.TorchOn()})

	case "change_facing":
		name, okParam := cmd.Params["facing"].(string)
		if !okParam {
			return fail(resp, "missing or invalid 'facing' parameter (expected string: back/front)"), true
		}
		f, err := types.ParseFacing(name)
		if err != nil {
			return fail(resp, err.Error()), true
		}
		resp = h.facingResult(resp)(s.ChangeToCameraFacing(f))

	case "switch_facing":
		resp = h.facingResult(resp)(s.SwitchCameraFacing())

	case "force_release":
		s.ForceRelease()
		resp = ok(resp, map[string]interface{}{"released": true})

	case "disable_standby":
		s.DisableStandbyState()
		resp = ok(resp, map[string]interface{}{"standby_disabled": true})

	case "set_symbology":
		name, okName := cmd.Params["symbology"].(string)
		on, okOn := cmd.Params["enabled"].(bool)
		if !okName || !okOn {
			return fail(resp, "missing or invalid 'symbology' (string) / 'enabled' (bool) parameters"), true
		}
		sym, err := types.ParseSymbology(name)
		if err != nil {
			return fail(resp, err.Error()), true
		}
		if err := s.SetSymbologyEnabled(sym, on); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"symbology": sym.String(), "enabled": on})

	case "set_msi_checksum":
		name, okParam := cmd.Params["checksum"].(string)
		if !okParam {
			return fail(resp, "missing or invalid 'checksum' parameter (expected string)"), true
		}
		m, err := types.ParseMsiChecksum(name)
		if err != nil {
			return fail(resp, err.Error()), true
		}
		if err := s.SetMsiPlesseyChecksumType(m); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"msi_checksum": m.String()})

	case "set_1d_enabled", "set_2d_enabled", "set_inverse_detection", "set_micro_datamatrix", "force_2d", "restrict_area":
		on, okParam := cmd.Params["enabled"].(bool)
		if !okParam {
			return fail(resp, "missing or invalid 'enabled' parameter (expected bool)"), true
		}
		h.flagSetter(cmd.Command)(on)
		resp = ok(resp, map[string]interface{}{"enabled": on})

	case "set_hotspot":
		x, okX := cmd.Params["x"].(float64)
		y, okY := cmd.Params["y"].(float64)
		if !okX || !okY {
			return fail(resp, "missing or invalid 'x' / 'y' parameters (expected float)"), true
		}
		if err := s.SetScanningHotSpot(x, y); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"x": x, "y": y})

	case "set_hotspot_height":
		height, okParam := cmd.Params["height"].(float64)
		if !okParam {
			return fail(resp, "missing or invalid 'height' parameter (expected float)"), true
		}
		if err := s.SetScanningHotSpotHeight(height); err != nil {
			return fail(resp, err.Error()), true
		}
		resp = ok(resp, map[string]interface{}{"height": height})

	case "capture_frame":
		if h.callbacks.Capture == nil {
			return fail(resp, "capture_frame not implemented"), true
		}
		s.SendNextFrameToDelegate(h.callbacks.Capture)
		resp = ok(resp, map[string]interface{}{"armed": true})

	case "shutdown":
		if h.callbacks.OnShutdown == nil {
			return fail(resp, "shutdown not implemented"), true
		}
		h.logger.Warn("control: shutdown command received")
		// Send response BEFORE triggering shutdown
		h.sendResponse(ok(resp, map[string]interface{}{"shutdown_initiated": true}))
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := h.callbacks.OnShutdown(); err != nil {
				h.logger.Error("control: shutdown callback failed", "error", err)
			}
		}()
		return resp, false

	default:
		return fail(resp, fmt.Sprintf("unknown command: %s", cmd.Command)), true
	}

	return resp, true
}

func (h *Handler) facingResult(resp Response) func(bool, error) Response {
	return func(switched bool, err error) Response {
		if err != nil {
			return fail(resp, err.Error())
		}
		if !switched {
			return fail(resp, "camera facing not supported")
		}
		return ok(resp, map[string]interface{}{
			"facing":   h.session.CameraFacing().String(),
			"scanning": h.session.IsScanning(),
		})
	}
}

func (h *Handler) flagSetter(command string) func(bool) {
	s := h.session
	switch command {
	case "set_1d_enabled":
		return s.Set1DScanningEnabled
	case "set_2d_enabled":
		return s.Set2DScanningEnabled
	case "set_inverse_detection":
		return s.SetInverseDetectionEnabled
	case "set_micro_datamatrix":
		return s.SetMicroDataMatrixEnabled
	case "force_2d":
		return s.Force2DRecognition
	default:
		return s.RestrictActiveScanningArea
	}
}

func ok(resp Response, data map[string]interface{}) Response {
	resp.Status = "success"
	resp.Data = data
	return resp
}

func fail(resp Response, msg string) Response {
	resp.Status = "error"
	resp.Error = msg
	return resp
}

// sendResponse publishes a response to the health topic
func (h *Handler) sendResponse(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("control: failed to marshal response", "error", err)
		return
	}

	token := h.client.Publish(h.responseTopic, h.responseQoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		h.logger.Error("control: response publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		h.logger.Error("control: failed to publish response", "error", err)
		return
	}

	h.logger.Debug("control: response sent", "command_ack", resp.CommandAck, "status", resp.Status)
}
