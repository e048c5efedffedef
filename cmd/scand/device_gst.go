//go:build gst

package main

import (
	"log/slog"

	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/device/gstcam"
	"github.com/e7canasta/scansession/internal/types"
)

func newGstDevice(cfg config.CameraConfig, logger *slog.Logger) (types.CameraDevice, error) {
	devices, err := devicePaths(cfg)
	if err != nil {
		return nil, err
	}
	cam, err := gstcam.New(gstcam.Config{
		Devices: devices,
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     float64(cfg.FPS),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return cam, nil
}
