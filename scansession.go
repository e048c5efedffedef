package scansession

import (
	"log/slog"

	"github.com/e7canasta/scansession/internal/retry"
	"github.com/e7canasta/scansession/internal/router"
	"github.com/e7canasta/scansession/internal/types"
	"github.com/e7canasta/scansession/internal/warmcache"
)

// Types re-exported from internal packages. See internal/types for full
// documentation.
type (
	Facing              = types.Facing
	State               = types.State
	Orientation         = types.Orientation
	Symbology           = types.Symbology
	MsiChecksum         = types.MsiChecksum
	CancelReason        = types.CancelReason
	ChecksumOutcome     = types.ChecksumOutcome
	PixelFormat         = types.PixelFormat
	Frame               = types.Frame
	Rect                = types.Rect
	Point               = types.Point
	DecodeResult        = types.DecodeResult
	Settings            = types.Settings
	DecodeConfiguration = types.DecodeConfiguration
	Handle              = types.Handle
	FrameFunc           = types.FrameFunc
	CameraDevice        = types.CameraDevice
	Decoder             = types.Decoder
	DecoderFunc         = types.DecoderFunc
	ResultDelegate      = types.ResultDelegate
	NextFrameDelegate   = types.NextFrameDelegate
	NextFrameFunc       = types.NextFrameFunc
	FrameEncoder        = types.FrameEncoder
	HardwareError       = types.HardwareError
	HardwareOp          = types.HardwareOp

	// RouterStats is the frame router counter snapshot.
	RouterStats = router.Stats
	// WarmCache holds parked camera handles. See internal/warmcache.
	WarmCache = warmcache.Cache
)

const (
	FacingBack  = types.FacingBack
	FacingFront = types.FacingFront

	StateUnprepared = types.StateUnprepared
	StatePrepared   = types.StatePrepared
	StateActive     = types.StateActive
	StateStandby    = types.StateStandby
	StateReleased   = types.StateReleased

	OrientationPortrait           = types.OrientationPortrait
	OrientationPortraitUpsideDown = types.OrientationPortraitUpsideDown
	OrientationLandscapeLeft      = types.OrientationLandscapeLeft
	OrientationLandscapeRight     = types.OrientationLandscapeRight

	SymbologyEan13Upc12 = types.SymbologyEan13Upc12
	SymbologyEan8       = types.SymbologyEan8
	SymbologyUpce       = types.SymbologyUpce
	SymbologyCode39     = types.SymbologyCode39
	SymbologyCode128    = types.SymbologyCode128
	SymbologyItf        = types.SymbologyItf
	SymbologyMsiPlessey = types.SymbologyMsiPlessey
	SymbologyQR         = types.SymbologyQR
	SymbologyDataMatrix = types.SymbologyDataMatrix
	SymbologyPdf417     = types.SymbologyPdf417

	MsiChecksumNone    = types.MsiChecksumNone
	MsiChecksumMod10   = types.MsiChecksumMod10
	MsiChecksumMod1010 = types.MsiChecksumMod1010
	MsiChecksumMod11   = types.MsiChecksumMod11
	MsiChecksumMod1110 = types.MsiChecksumMod1110

	CancelFacingSwitch = types.CancelFacingSwitch

	FormatGray8  = types.FormatGray8
	FormatRGB24  = types.FormatRGB24
	FormatBGR24  = types.FormatBGR24
	FormatRGBA32 = types.FormatRGBA32
	FormatNV21   = types.FormatNV21

	OpOpen       = types.OpOpen
	OpStream     = types.OpStream
	OpStopStream = types.OpStopStream
	OpClose      = types.OpClose
)

// Errors re-exported from internal/types.
var (
	ErrUnsupportedCapability = types.ErrUnsupportedCapability
	ErrInvalidRange          = types.ErrInvalidRange
	ErrStaleResult           = types.ErrStaleResult
	ErrHardwareFailure       = types.ErrHardwareFailure
	ErrMissingAppKey         = types.ErrMissingAppKey
	ErrNoDevice              = types.ErrNoDevice
	ErrNoDecoder             = types.ErrNoDecoder
	ErrClosed                = types.ErrClosed
)

// DefaultSettings returns the construction-time decode policy.
func DefaultSettings() Settings { return types.DefaultSettings() }

// Option configures a Session.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	facing     Facing
	decoder    Decoder
	encoder    FrameEncoder
	delegate   ResultDelegate
	cache      *warmcache.Cache
	closeRetry retry.Config
	settings   *Settings
}

func defaultOptions() options {
	return options{
		logger:     slog.Default(),
		facing:     FacingBack,
		cache:      warmcache.Default,
		closeRetry: retry.CloseConfig(),
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFacing sets the preferred camera facing (default FacingBack).
func WithFacing(f Facing) Option {
	return func(o *options) { o.facing = f }
}

// WithDecoder sets the decoder engine. Required.
func WithDecoder(d Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// WithEncoder overrides the JPEG encoder used for next-frame captures.
func WithEncoder(e FrameEncoder) Option {
	return func(o *options) { o.encoder = e }
}

// WithResultDelegate sets the initial result delegate.
func WithResultDelegate(d ResultDelegate) Option {
	return func(o *options) { o.delegate = d }
}

// WithWarmCache uses c instead of the process-wide warm cache.
func WithWarmCache(c *WarmCache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithSettings replaces the default decode policy.
func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = &s }
}

// NewWarmCache returns a private warm cache for WithWarmCache.
func NewWarmCache(l *slog.Logger) *WarmCache { return warmcache.New(l) }

// Prepare opens the camera for facing on dev and parks it in the process-wide
// warm cache, so that a later Init can start without the open latency.
// Idempotent for the same device and facing.
func Prepare(dev CameraDevice, appKey string, facing Facing) error {
	if appKey == "" {
		return ErrMissingAppKey
	}
	return warmcache.Default.Prepare(dev, facing)
}

// ShutdownWarmCache closes every handle parked in the process-wide warm cache.
func ShutdownWarmCache() {
	warmcache.Default.Invalidate()
}
