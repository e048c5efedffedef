//go:build !gst

package main

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/e7canasta/scansession/internal/config"
)

func TestNewDevice_GstNotCompiled(t *testing.T) {
	_, err := newDevice(config.CameraConfig{Driver: "gst", Width: 640, Height: 480, FPS: 30}, slog.Default())
	if err == nil || !strings.Contains(err.Error(), "-tags gst") {
		t.Errorf("newDevice(gst) error = %v, want build tag hint", err)
	}
}
