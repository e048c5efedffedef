// Package warmcache keeps opened-but-idle camera handles so that a session
// can start scanning without paying the camera open latency.
//
// A parked handle is open, not streaming, with the torch off. The cache owns
// every handle it holds until Take hands it back to a session.
package warmcache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/scansession/internal/types"
)

// Default is the process-wide cache used by scansession.Prepare and by
// sessions that were not given their own cache.
var Default = New(nil)

type entry struct {
	dev      types.CameraDevice
	handle   types.Handle
	parkedAt time.Time
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Parked int    `json:"parked"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Opens  uint64 `json:"opens"`
	Closes uint64 `json:"closes"`
}

// Cache holds at most one warm handle per facing.
//
// Devices are compared by interface equality, so adapters must be pointer
// (or otherwise comparable) types.
type Cache struct {
	mu      sync.Mutex
	entries map[types.Facing]entry
	logger  *slog.Logger

	hits, misses, opens, closes uint64
}

// New returns an empty cache. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[types.Facing]entry),
		logger:  logger,
	}
}

// Prepare opens a handle for facing on dev and parks it. It is a no-op when a
// handle for the same device and facing is already parked.
func (c *Cache) Prepare(dev types.CameraDevice, facing types.Facing) error {
	if dev == nil {
		return types.ErrNoDevice
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[facing]; ok {
		if e.dev == dev {
			return nil
		}
		c.closeLocked(facing, e)
	}

	if !dev.Supports(facing) {
		return fmt.Errorf("prepare %s camera: %w", facing, types.ErrUnsupportedCapability)
	}
	h, err := dev.Open(facing)
	if err != nil {
		return types.NewHardwareError(types.OpOpen, facing, err)
	}
	c.opens++
	c.entries[facing] = entry{dev: dev, handle: h, parkedAt: time.Now()}

	c.logger.Info("warmcache: camera prepared", "facing", facing.String())
	return nil
}

// Take removes and returns the parked handle for dev and facing.
func (c *Cache) Take(dev types.CameraDevice, facing types.Facing) (types.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[facing]
	if !ok || e.dev != dev {
		c.misses++
		return nil, false
	}
	delete(c.entries, facing)
	c.hits++

	c.logger.Debug("warmcache: warm handle taken",
		"facing", facing.String(),
		"parked_for", time.Since(e.parkedAt),
	)
	return e.handle, true
}

// Park stores h for later reuse. A handle already parked for the same facing
// is closed first.
func (c *Cache) Park(dev types.CameraDevice, h types.Handle) {
	if dev == nil || h == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	facing := h.Facing()
	if e, ok := c.entries[facing]; ok {
		if e.handle == h {
			return
		}
		c.closeLocked(facing, e)
	}
	c.entries[facing] = entry{dev: dev, handle: h, parkedAt: time.Now()}

	c.logger.Debug("warmcache: handle parked", "facing", facing.String())
}

// Has reports whether a handle for facing is parked.
func (c *Cache) Has(facing types.Facing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[facing]
	return ok
}

// Invalidate closes every parked handle.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for facing, e := range c.entries {
		c.closeLocked(facing, e)
	}
}

// InvalidateDevice closes the parked handles that belong to dev.
func (c *Cache) InvalidateDevice(dev types.CameraDevice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for facing, e := range c.entries {
		if e.dev == dev {
			c.closeLocked(facing, e)
		}
	}
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Parked: len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
		Opens:  c.opens,
		Closes: c.closes,
	}
}

func (c *Cache) closeLocked(facing types.Facing, e entry) {
	delete(c.entries, facing)
	c.closes++
	if err := e.dev.Close(e.handle); err != nil {
		c.logger.Warn("warmcache: close failed", "facing", facing.String(), "error", err)
		return
	}
	c.logger.Debug("warmcache: handle closed", "facing", facing.String())
}
