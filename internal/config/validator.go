package config

import (
	"fmt"
	"regexp"

	"github.com/e7canasta/scansession/internal/types"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks if the configuration is valid and fills defaults
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.AppKey == "" {
		return fmt.Errorf("app_key is required")
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	if err := validateCamera(&cfg.Camera); err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	if _, err := types.ParseOrientation(cfg.Session.PreviewOrientation); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if _, err := cfg.Decode.Settings(); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	switch cfg.Capture.Format {
	case "":
		cfg.Capture.Format = "jpeg"
	case "jpeg", "png":
	default:
		return fmt.Errorf("capture.format must be 'jpeg' or 'png', got %q", cfg.Capture.Format)
	}
	if cfg.Capture.Quality == 0 {
		cfg.Capture.Quality = 90
	}
	if cfg.Capture.Quality < 1 || cfg.Capture.Quality > 100 {
		return fmt.Errorf("capture.jpeg_quality must be in range [1, 100], got %d", cfg.Capture.Quality)
	}

	if err := validateMQTT(&cfg.MQTT, cfg.InstanceID); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.Port < -1 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be in range [1, 65535] or -1, got %d", cfg.HTTP.Port)
	}

	return nil
}

func validateCamera(c *CameraConfig) error {
	switch c.Driver {
	case "":
		c.Driver = "sim"
	case "sim", "gst":
	default:
		return fmt.Errorf("driver must be 'sim' or 'gst', got %q", c.Driver)
	}

	if _, err := types.ParseFacing(c.Facing); err != nil {
		return err
	}
	for name, path := range c.Devices {
		if _, err := types.ParseFacing(name); err != nil {
			return fmt.Errorf("devices: %w", err)
		}
		if path == "" {
			return fmt.Errorf("devices: empty path for facing %q", name)
		}
	}

	if c.Width == 0 && c.Height == 0 {
		c.Width, c.Height = 640, 480
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("fps must be in range [1, 240], got %d", c.FPS)
	}

	if p := c.Payload; p != nil {
		if c.Driver != "sim" {
			return fmt.Errorf("payload is only supported by the sim driver")
		}
		if _, err := types.ParseSymbology(p.Symbology); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		if p.Row < 0 || p.Row > 1 {
			return fmt.Errorf("payload: row must be in range [0, 1], got %v", p.Row)
		}
	}
	return nil
}

func validateMQTT(m *MQTTConfig, instanceID string) error {
	switch m.PayloadFormat {
	case "":
		m.PayloadFormat = "json"
	case "json", "msgpack":
	default:
		return fmt.Errorf("payload_format must be 'json' or 'msgpack', got %q", m.PayloadFormat)
	}

	if m.Broker == "" {
		return nil
	}
	if m.ClientID == "" {
		m.ClientID = fmt.Sprintf("scand-%s", instanceID)
	}

	// Set default topics if not provided
	if m.Topics.Control == "" {
		m.Topics.Control = fmt.Sprintf("scan/control/%s", instanceID)
	}
	if m.Topics.Results == "" {
		m.Topics.Results = fmt.Sprintf("scan/results/%s", instanceID)
	}
	if m.Topics.Captures == "" {
		m.Topics.Captures = fmt.Sprintf("scan/captures/%s", instanceID)
	}
	if m.Topics.Health == "" {
		m.Topics.Health = fmt.Sprintf("scan/health/%s", instanceID)
	}

	// Set default QoS if not provided
	if m.QoS == nil {
		m.QoS = map[string]byte{
			"control":  1,
			"results":  1,
			"captures": 0,
			"health":   0,
		}
	}
	for topic, qos := range m.QoS {
		if qos > 2 {
			return fmt.Errorf("qos for %q must be 0, 1 or 2, got %d", topic, qos)
		}
	}
	return nil
}
