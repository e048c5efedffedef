package main

import (
	"fmt"
	"log/slog"

	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/device/simcam"
	"github.com/e7canasta/scansession/internal/types"
)

// newDevice builds the camera device named by cfg.Driver.
func newDevice(cfg config.CameraConfig, logger *slog.Logger) (types.CameraDevice, error) {
	switch cfg.Driver {
	case "sim":
		return newSimDevice(cfg, logger)
	case "gst":
		return newGstDevice(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown camera driver %q", cfg.Driver)
	}
}

func newSimDevice(cfg config.CameraConfig, logger *slog.Logger) (types.CameraDevice, error) {
	cam, err := simcam.New(simcam.Config{
		Width:  cfg.Width,
		Height: cfg.Height,
		FPS:    cfg.FPS,
		Torch:  cfg.Torch,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	if p := cfg.Payload; p != nil {
		sym, err := types.ParseSymbology(p.Symbology)
		if err != nil {
			return nil, err
		}
		cam.SetPayload(&simcam.Payload{
			Symbology: sym,
			Data:      []byte(p.Data),
			Row:       p.Row,
		})
		logger.Info("simulated payload configured", "symbology", sym.String(), "data", p.Data)
	}
	return cam, nil
}

// devicePaths parses the facing → device node map.
func devicePaths(cfg config.CameraConfig) (map[types.Facing]string, error) {
	devices := make(map[types.Facing]string, len(cfg.Devices))
	for name, path := range cfg.Devices {
		f, err := types.ParseFacing(name)
		if err != nil {
			return nil, err
		}
		devices[f] = path
	}
	if len(devices) == 0 {
		devices[cfg.StartFacing()] = "/dev/video0"
	}
	return devices, nil
}
