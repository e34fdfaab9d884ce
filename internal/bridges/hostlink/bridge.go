package hostlink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/auth"
	"github.com/nerrad567/webstone-core/internal/control"
	"github.com/nerrad567/webstone-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/webstone-core/internal/registry"
)

// Replies published for admin actions.
const (
	ReplyPassphraseSet       = "Your passphrase has been successfully changed."
	ReplyPassphraseGenerated = `Your passphrase is %q.`
	ReplyChangePassphrase    = `You can change it using "setpass".`
	ReplyContextPublic       = "Switched to public context."
	ReplyContextPrivate      = "Switched to private context."
)

// DefaultQueueSize bounds the outbound queue when New is given zero.
const DefaultQueueSize = 256

// MQTTClient is the part of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Topics() mqtt.Topics
	QoS() byte
}

// Submitter queues work onto the loop. *loop.Loop satisfies it.
type Submitter interface {
	Submit(fn func()) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type outbound struct {
	topic   string
	payload []byte
}

// Bridge is the MQTT host collaborator.
//
// Thread Safety: the Sink methods are called on the loop and never block.
// Inbound handlers run on the MQTT client's goroutines and only touch the
// control service through the loop.
type Bridge struct {
	mqtt   MQTTClient
	topics mqtt.Topics
	svc    *control.Service
	loop   Submitter

	queue   chan outbound
	done    chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool
	stop    sync.Once
	dropped atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a bridge. queueSize bounds the outbound queue.
func New(client MQTTClient, svc *control.Service, lp Submitter, queueSize int) *Bridge {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bridge{
		mqtt:   client,
		topics: client.Topics(),
		svc:    svc,
		loop:   lp,
		queue:  make(chan outbound, queueSize),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// hostTopics lists the subscriptions Start makes and Stop removes.
func (b *Bridge) hostTopics() []string {
	return []string{
		b.topics.AllStates(),
		b.topics.AllRegistrations(),
		b.topics.AllUnregistrations(),
		b.topics.AllAdmin(),
	}
}

// Start launches the publisher and subscribes to the host notification and
// admin topics. Calling it twice is a no-op.
func (b *Bridge) Start(_ context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return nil
	}

	b.wg.Add(1)
	go b.publisher()

	qos := b.mqtt.QoS()
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.AllStates(), b.handleState},
		{b.topics.AllRegistrations(), b.handleRegister},
		{b.topics.AllUnregistrations(), b.handleUnregister},
		{b.topics.AllAdmin(), b.handleAdmin},
	}
	for _, s := range subs {
		if err := b.mqtt.Subscribe(s.topic, qos, s.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
		b.getLogger().Info("subscribed to host topic", "topic", s.topic)
	}

	b.getLogger().Info("host link started", "prefix", b.topics.Prefix())
	return nil
}

// Stop unsubscribes, publishes what is already queued and waits for the
// publisher to exit.
func (b *Bridge) Stop() {
	b.stop.Do(func() {
		for _, topic := range b.hostTopics() {
			if err := b.mqtt.Unsubscribe(topic); err != nil {
				b.getLogger().Debug("unsubscribe failed", "topic", topic, "error", err)
			}
		}
		close(b.done)
		b.wg.Wait()
		b.getLogger().Info("host link stopped", "dropped", b.dropped.Load())
	})
}

// Dropped returns how many outbound messages were discarded because the
// queue was full or the bridge had stopped.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// ApplyPowerChange implements control.Sink.
func (b *Bridge) ApplyPowerChange(blockID uuid.UUID, powered bool) {
	b.enqueue(b.topics.Command(blockID.String()), CommandMessage{BlockID: blockID, Powered: &powered})
}

// ApplyLevelChange implements control.Sink.
func (b *Bridge) ApplyLevelChange(blockID uuid.UUID, power int) {
	b.enqueue(b.topics.Command(blockID.String()), CommandMessage{BlockID: blockID, Power: &power})
}

// enqueue never blocks.
func (b *Bridge) enqueue(topic string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.getLogger().Error("failed to encode host message", "topic", topic, "error", err)
		return
	}

	select {
	case <-b.done:
		b.dropped.Add(1)
		return
	default:
	}

	select {
	case b.queue <- outbound{topic: topic, payload: payload}:
	default:
		b.dropped.Add(1)
		b.getLogger().Warn("host queue full, dropping message", "topic", topic)
	}
}

func (b *Bridge) publisher() {
	defer b.wg.Done()
	for {
		select {
		case m := <-b.queue:
			b.publish(m)
		case <-b.done:
			for {
				select {
				case m := <-b.queue:
					b.publish(m)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(m outbound) {
	if err := b.mqtt.Publish(m.topic, m.payload, b.mqtt.QoS(), false); err != nil {
		b.getLogger().Warn("failed to publish to host", "topic", m.topic, "error", err)
	}
}

// blockTopic checks topic against category and returns its block id.
func (b *Bridge) blockTopic(topic, category string) (uuid.UUID, error) {
	got, id, ok := b.topics.Parse(topic)
	if !ok || got != category {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	blockID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidBlockID, id)
	}
	return blockID, nil
}

func (b *Bridge) submit(fn func()) error {
	select {
	case <-b.done:
		return ErrStopped
	default:
	}
	if err := b.loop.Submit(fn); err != nil {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	return nil
}

func (b *Bridge) handleState(topic string, payload []byte) error {
	blockID, err := b.blockTopic(topic, mqtt.CategoryState)
	if err != nil {
		return err
	}
	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if msg.Powered == nil && msg.Power == nil {
		return fmt.Errorf("%w: state message carries neither powered nor power", ErrInvalidPayload)
	}

	return b.submit(func() {
		if msg.Powered != nil {
			b.svc.NotifyBlockState(blockID, *msg.Powered)
		}
		if msg.Power != nil {
			b.svc.NotifyBlockPower(blockID, *msg.Power)
		}
	})
}

func (b *Bridge) handleRegister(topic string, payload []byte) error {
	blockID, err := b.blockTopic(topic, mqtt.CategoryRegister)
	if err != nil {
		return err
	}
	var msg RegisterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if msg.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: missing ownerId", ErrInvalidPayload)
	}

	return b.submit(func() {
		advisories, ok := b.svc.RegisterBlock(blockID, msg.OwnerID, msg.OwnerName, msg.Powered, msg.Power)
		if ok {
			return
		}
		b.getLogger().Info("block registration refused", "block_id", blockID, "owner_id", msg.OwnerID)
		b.enqueue(b.topics.Advisory(msg.OwnerID.String()), AdvisoryMessage{BlockID: blockID, Messages: advisories})
	})
}

func (b *Bridge) handleUnregister(topic string, _ []byte) error {
	blockID, err := b.blockTopic(topic, mqtt.CategoryUnregister)
	if err != nil {
		return err
	}
	return b.submit(func() {
		b.svc.UnregisterBlock(control.HostScope(), blockID)
	})
}

// handleAdmin serves the owner administration topics. Passphrases are
// hashed here, on the MQTT goroutine, and only the hash goes to the loop.
func (b *Bridge) handleAdmin(topic string, payload []byte) error {
	owner, action, ok := b.topics.ParseAdmin(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	if action == mqtt.ActionClear {
		return b.submit(func() {
			b.svc.Clear()
			b.getLogger().Warn("registries cleared by host")
		})
	}

	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOwnerID, owner)
	}

	switch action {
	case mqtt.ActionSetPassphrase:
		var msg SetPassphraseMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if msg.Passphrase == "" {
			return fmt.Errorf("%w: empty passphrase", ErrInvalidPayload)
		}
		hash, err := auth.HashPassphrase(msg.Passphrase)
		if err != nil {
			return err
		}
		return b.submit(func() {
			b.svc.SetPassphraseHash(ownerID, hash)
			b.reply(ownerID, AdminReplyMessage{Action: action, Messages: []string{ReplyPassphraseSet}})
		})

	case mqtt.ActionGeneratePassphrase:
		plaintext, err := auth.GeneratePassphrase()
		if err != nil {
			return err
		}
		hash, err := auth.HashPassphrase(plaintext)
		if err != nil {
			return err
		}
		return b.submit(func() {
			b.svc.SetPassphraseHash(ownerID, hash)
			b.reply(ownerID, AdminReplyMessage{
				Action:     action,
				Messages:   []string{fmt.Sprintf(ReplyPassphraseGenerated, plaintext), ReplyChangePassphrase},
				Passphrase: plaintext,
			})
		})

	case mqtt.ActionContext:
		var msg ContextMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		c, err := registry.ParseContext(msg.Context)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		text := ReplyContextPrivate
		if c == registry.ContextPublic {
			text = ReplyContextPublic
		}
		return b.submit(func() {
			b.svc.SetUserContext(ownerID, c)
			b.reply(ownerID, AdminReplyMessage{Action: action, Messages: []string{text}})
		})

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (b *Bridge) reply(ownerID uuid.UUID, msg AdminReplyMessage) {
	b.enqueue(b.topics.Advisory(ownerID.String()), msg)
}
