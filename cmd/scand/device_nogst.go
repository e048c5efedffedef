//go:build !gst

package main

import (
	"fmt"
	"log/slog"

	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/types"
)

func newGstDevice(cfg config.CameraConfig, _ *slog.Logger) (types.CameraDevice, error) {
	if _, err := devicePaths(cfg); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("gst driver not compiled in (rebuild with -tags gst)")
}
