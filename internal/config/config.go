package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/scansession/internal/types"
)

// Config represents the complete scand configuration
type Config struct {
	InstanceID       string        `yaml:"instance_id"`
	AppKey           string        `yaml:"app_key"`
	ShutdownTimeoutS int           `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	Camera           CameraConfig  `yaml:"camera"`
	Session          SessionConfig `yaml:"session"`
	Decode           DecodeConfig  `yaml:"decode"`
	Capture          CaptureConfig `yaml:"capture"`
	MQTT             MQTTConfig    `yaml:"mqtt"`
	HTTP             HTTPConfig    `yaml:"http"`
}

// CameraConfig contains camera settings
type CameraConfig struct {
	Driver  string            `yaml:"driver"`  // sim, gst
	Facing  string            `yaml:"facing"`  // back, front
	Devices map[string]string `yaml:"devices"` // facing -> device path (gst only)
	Width   int               `yaml:"width"`
	Height  int               `yaml:"height"`
	FPS     int               `yaml:"fps"`
	Torch   bool              `yaml:"torch"`   // sim only, gst has no torch control
	Prewarm bool              `yaml:"prewarm"` // open the camera into the warm cache before Init
	Payload *PayloadConfig    `yaml:"payload,omitempty"`
}

// PayloadConfig is the code drawn into simulated frames.
type PayloadConfig struct {
	Symbology string  `yaml:"symbology"`
	Data      string  `yaml:"data"`
	Row       float64 `yaml:"row"` // relative to frame height
}

// SessionConfig contains scan session behaviour
type SessionConfig struct {
	StandbyDisabled    bool   `yaml:"standby_disabled"`
	PreviewOrientation string `yaml:"preview_orientation"` // portrait, portrait_upside_down, landscape_left, landscape_right
	AutoStart          *bool  `yaml:"auto_start,omitempty"` // start scanning at boot (default: true)
}

// DecodeConfig is the initial decode policy
type DecodeConfig struct {
	Enable1D         *bool           `yaml:"enable_1d,omitempty"`
	Enable2D         *bool           `yaml:"enable_2d,omitempty"`
	Symbologies      map[string]bool `yaml:"symbologies"` // overrides on top of the defaults
	MsiChecksum      string          `yaml:"msi_checksum"`
	Hotspot          *HotspotConfig  `yaml:"hotspot,omitempty"`
	HotspotHeight    float64         `yaml:"hotspot_height"`
	RestrictedArea   bool            `yaml:"restricted_area"`
	InverseDetection bool            `yaml:"inverse_detection"`
	MicroDataMatrix  bool            `yaml:"micro_datamatrix"`
	Force2D          bool            `yaml:"force_2d"`
}

// HotspotConfig is a point in normalized frame coordinates
type HotspotConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// CaptureConfig contains next-frame capture settings
type CaptureConfig struct {
	Format  string `yaml:"format"` // jpeg, png
	Quality int    `yaml:"jpeg_quality"`
}

// MQTTConfig contains MQTT broker settings. An empty broker disables the
// emitter and the control plane.
type MQTTConfig struct {
	Broker        string          `yaml:"broker"`
	ClientID      string          `yaml:"client_id"`
	PayloadFormat string          `yaml:"payload_format"` // json, msgpack
	Topics        MQTTTopics      `yaml:"topics"`
	QoS           map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Control  string `yaml:"control"`
	Results  string `yaml:"results"`
	Captures string `yaml:"captures"`
	Health   string `yaml:"health"`
}

// HTTPConfig contains the status server settings
type HTTPConfig struct {
	Port int `yaml:"port"` // default 8080, -1 disables
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Settings builds the decode policy: defaults first, then the configured
// overrides.
func (d DecodeConfig) Settings() (types.Settings, error) {
	s := types.DefaultSettings()
	if d.Enable1D != nil {
		s.Enabled1D = *d.Enable1D
	}
	if d.Enable2D != nil {
		s.Enabled2D = *d.Enable2D
	}
	for name, on := range d.Symbologies {
		sym, err := types.ParseSymbology(name)
		if err != nil {
			return s, err
		}
		s = s.WithSymbology(sym, on)
	}
	if d.MsiChecksum != "" {
		m, err := types.ParseMsiChecksum(d.MsiChecksum)
		if err != nil {
			return s, err
		}
		s.MsiChecksum = m
	}
	if d.Hotspot != nil {
		s.Hotspot = types.Point{X: d.Hotspot.X, Y: d.Hotspot.Y}
	}
	if d.HotspotHeight != 0 {
		s.HotspotHeight = d.HotspotHeight
	}
	s.RestrictedArea = d.RestrictedArea
	s.InverseDetection = d.InverseDetection
	s.MicroDataMatrix = d.MicroDataMatrix
	s.Force2D = d.Force2D

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// StartFacing returns the parsed start facing.
func (c CameraConfig) StartFacing() types.Facing {
	f, _ := types.ParseFacing(c.Facing)
	return f
}

// Orientation returns the parsed preview orientation.
func (s SessionConfig) Orientation() types.Orientation {
	o, _ := types.ParseOrientation(s.PreviewOrientation)
	return o
}

// ShouldAutoStart reports whether scanning starts at boot.
func (s SessionConfig) ShouldAutoStart() bool {
	return s.AutoStart == nil || *s.AutoStart
}
