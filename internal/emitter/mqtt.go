package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/types"
)

const publishTimeout = 2 * time.Second

// Publisher is the part of mqtt.Client the emitter publishes through.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTEmitter publishes scan results and captured frames to an MQTT broker.
//
// It implements both ResultDelegate and NextFrameDelegate. Publish failures
// are counted and logged; delegates have no error path back to the session.
type MQTTEmitter struct {
	cfg        config.MQTTConfig
	instanceID string
	sessionID  string
	codec      Codec
	logger     *slog.Logger

	Client    mqtt.Client // Exported for the control plane
	publisher Publisher

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	errors    uint64
	connected bool
}

// NewMQTTEmitter creates an emitter for the session sessionID. It does not
// connect.
func NewMQTTEmitter(cfg *config.Config, sessionID string, logger *slog.Logger) (*MQTTEmitter, error) {
	codec, err := NewCodec(cfg.MQTT.PayloadFormat)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTEmitter{
		cfg:        cfg.MQTT,
		instanceID: cfg.InstanceID,
		sessionID:  sessionID,
		codec:      codec,
		logger:     logger,
		published:  make(map[string]uint64),
	}, nil
}

// Connect establishes connection to the MQTT broker
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	broker := e.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("emitter: mqtt connection established",
			"broker", broker,
			"client_id", e.cfg.ClientID,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warn("emitter: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", broker,
		)
	}

	e.Client = mqtt.NewClient(opts)
	e.publisher = e.Client

	e.logger.Info("emitter: connecting to mqtt broker", "broker", broker, "format", e.codec.Name())

	token := e.Client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// DidScan publishes the result to <results>/<symbology>.
func (e *MQTTEmitter) DidScan(result *types.DecodeResult) {
	topic := fmt.Sprintf("%s/%s", e.cfg.Topics.Results, result.Symbology)
	msg := newResultMessage(e.instanceID, e.sessionID, result)
	if err := e.publish(topic, e.qos("results"), msg); err != nil {
		e.logger.Warn("emitter: result not published",
			"topic", topic,
			"trace_id", result.TraceID,
			"error", err,
		)
	}
}

// DecodeCancelled publishes to <results>/cancelled.
func (e *MQTTEmitter) DecodeCancelled(reason types.CancelReason) {
	topic := e.cfg.Topics.Results + "/cancelled"
	msg := CancelMessage{
		InstanceID: e.instanceID,
		SessionID:  e.sessionID,
		Reason:     reason.String(),
		At:         time.Now(),
	}
	if err := e.publish(topic, e.qos("results"), msg); err != nil {
		e.logger.Warn("emitter: cancel event not published", "topic", topic, "error", err)
	}
}

// DidCaptureImage publishes an encoded frame to the captures topic.
func (e *MQTTEmitter) DidCaptureImage(image []byte, width, height int) {
	msg := CaptureMessage{
		CaptureID:  uuid.NewString(),
		InstanceID: e.instanceID,
		SessionID:  e.sessionID,
		Width:      width,
		Height:     height,
		Size:       len(image),
		Image:      image,
		CapturedAt: time.Now(),
	}
	if err := e.publish(e.cfg.Topics.Captures, e.qos("captures"), msg); err != nil {
		e.logger.Warn("emitter: capture not published",
			"capture_id", msg.CaptureID,
			"error", err,
		)
		return
	}
	e.logger.Info("emitter: capture published",
		"capture_id", msg.CaptureID,
		"size", len(image),
		"width", width,
		"height", height,
	)
}

// PublishHealth publishes raw bytes to the health topic.
func (e *MQTTEmitter) PublishHealth(payload []byte) error {
	return e.publishRaw(e.cfg.Topics.Health, e.qos("health"), payload)
}

func (e *MQTTEmitter) publish(topic string, qos byte, v any) error {
	payload, err := e.codec.Marshal(v)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return e.publishRaw(topic, qos, payload)
}

func (e *MQTTEmitter) publishRaw(topic string, qos byte, payload []byte) error {
	e.mu.RLock()
	connected, pub := e.connected, e.publisher
	e.mu.RUnlock()
	if !connected || pub == nil {
		e.countError()
		return fmt.Errorf("mqtt not connected")
	}

	token := pub.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	e.logger.Debug("emitter: message published",
		"topic", topic,
		"qos", qos,
		"size", len(payload),
	)
	return nil
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250) // 250ms grace period
		e.logger.Info("emitter: mqtt disconnected")
	}
	e.setConnected(false)
	return nil
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Format    string            `json:"format"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{
		Connected: e.connected,
		Format:    e.codec.Name(),
		Published: published,
		Errors:    e.errors,
	}
}

// IsConnected returns connection status
func (e *MQTTEmitter) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// qos returns the QoS level for a topic class
func (e *MQTTEmitter) qos(class string) byte {
	if qos, ok := e.cfg.QoS[class]; ok {
		return qos
	}
	return 0
}
