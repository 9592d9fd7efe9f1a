package zeromq

import (
	"context"
	"sync"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/open-teleop/invkin/pkg/config"
	customlog "github.com/open-teleop/invkin/pkg/log"
)

// Common errors
var (
	ErrServiceClosed   = errors.New("zeromq service is closed")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrUnknownTopic    = errors.New("no handler for topic")
	defaultPollTimeout = 100 * time.Millisecond
)

// HandlerFunc processes the payload of one message on a subscribed topic.
type HandlerFunc func(payload []byte) error

// MessageDispatcher routes received messages to the handler registered for
// their topic.
type MessageDispatcher struct {
	handlers map[string]HandlerFunc
	logger   customlog.Logger
	mu       sync.RWMutex
}

// NewMessageDispatcher creates a new message dispatcher
func NewMessageDispatcher(logger customlog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// RegisterHandler adds a handler for a topic, replacing any previous one
func (d *MessageDispatcher) RegisterHandler(topic string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[topic] = handler
	d.logger.Debugf("Registered handler for topic: %s", topic)
}

// Topics lists the topics with a handler.
func (d *MessageDispatcher) Topics() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	topics := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		topics = append(topics, t)
	}
	return topics
}

// Dispatch hands payload to the handler for topic
func (d *MessageDispatcher) Dispatch(topic string, payload []byte) error {
	d.mu.RLock()
	handler, exists := d.handlers[topic]
	d.mu.RUnlock()

	if !exists {
		return errors.Wrap(ErrUnknownTopic, topic)
	}
	return handler(payload)
}

// MessageReceiver reads [topic, payload] messages from a SUB socket
type MessageReceiver struct {
	socket       *zmq4.Socket
	poller       *zmq4.Poller
	dispatcher   *MessageDispatcher
	logger       customlog.Logger
	pollInterval time.Duration
	onMessage    func(topic string, size int, err error)
}

func newMessageReceiver(ctx *zmq4.Context, cfg config.ZeroMQBootstrap, dispatcher *MessageDispatcher, logger customlog.Logger) (*MessageReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create SUB socket")
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, errors.Wrap(err, "failed to set linger option")
	}

	if err := socket.Connect(cfg.FeedbackConnectAddress); err != nil {
		socket.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s", cfg.FeedbackConnectAddress)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	interval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultPollTimeout
	}

	logger.Infof("MessageReceiver connected to %s", cfg.FeedbackConnectAddress)

	return &MessageReceiver{
		socket:       socket,
		poller:       poller,
		dispatcher:   dispatcher,
		logger:       logger,
		pollInterval: interval,
	}, nil
}

func (r *MessageReceiver) subscribe(topic string) error {
	return errors.Wrapf(r.socket.SetSubscribe(topic), "failed to subscribe to %s", topic)
}

// run polls until ctx is done. Handler errors are logged and do not stop the
// loop.
func (r *MessageReceiver) run(ctx context.Context) error {
	r.logger.Infof("MessageReceiver started")
	defer r.logger.Infof("MessageReceiver stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		sockets, err := r.poller.Poll(r.pollInterval)
		if err != nil {
			r.logger.Warnf("Error polling socket: %v", err)
			if !backoff(ctx, r.pollInterval) {
				return nil
			}
			continue
		}
		if len(sockets) == 0 {
			continue
		}

		parts, err := r.socket.RecvMessageBytes(0)
		if err != nil {
			r.logger.Warnf("Error receiving message: %v", err)
			if !backoff(ctx, r.pollInterval) {
				return nil
			}
			continue
		}
		if len(parts) != 2 {
			r.logger.Warnf("Dropping message: %v, expected 2 frames, got %d", ErrInvalidMessage, len(parts))
			continue
		}

		topic, payload := string(parts[0]), parts[1]
		err = r.dispatcher.Dispatch(topic, payload)
		if r.onMessage != nil {
			r.onMessage(topic, len(payload), err)
		}
		if err != nil {
			r.logger.Warnf("Error handling message on %s: %v", topic, err)
		}
	}
}

// backoff waits d before the next poll after a socket error. It reports false
// if ctx is done first.
func backoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *MessageReceiver) close() error {
	return r.socket.Close()
}

// MessageSender publishes [topic, payload] messages on a PUB socket
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, cfg config.ZeroMQBootstrap, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PUB socket")
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, errors.Wrap(err, "failed to set linger option")
	}

	if err := socket.Bind(cfg.PublishBindAddress); err != nil {
		socket.Close()
		return nil, errors.Wrapf(err, "failed to bind to %s", cfg.PublishBindAddress)
	}

	logger.Infof("MessageSender bound on %s", cfg.PublishBindAddress)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends payload on topic. Safe for concurrent use.
func (s *MessageSender) PublishMessage(topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return errors.Wrap(err, "failed to send topic")
	}
	if _, err := s.socket.SendBytes(payload, 0); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

func (s *MessageSender) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.socket.Close()
}

// ZeroMQService owns the controller's sockets: a SUB socket for feedback and
// a PUB socket for everything the controller emits.
type ZeroMQService struct {
	ctx        *zmq4.Context
	receiver   *MessageReceiver
	sender     *MessageSender
	dispatcher *MessageDispatcher
	logger     customlog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewZeroMQService creates the sockets described by cfg
func NewZeroMQService(cfg config.ZeroMQBootstrap, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ZMQ context")
	}

	dispatcher := NewMessageDispatcher(logger)

	receiver, err := newMessageReceiver(ctx, cfg, dispatcher, logger)
	if err != nil {
		ctx.Term()
		return nil, err
	}

	sender, err := newMessageSender(ctx, cfg, logger)
	if err != nil {
		return nil, multierr.Combine(err, receiver.close(), ctx.Term())
	}

	return &ZeroMQService{
		ctx:        ctx,
		receiver:   receiver,
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// RegisterHandler subscribes to topic and routes its messages to handler.
// Register before calling Run.
func (s *ZeroMQService) RegisterHandler(topic string, handler HandlerFunc) error {
	if err := s.receiver.subscribe(topic); err != nil {
		return err
	}
	s.dispatcher.RegisterHandler(topic, handler)
	return nil
}

// OnMessage installs a hook called after every dispatched message. Set it
// before calling Run.
func (s *ZeroMQService) OnMessage(fn func(topic string, size int, err error)) {
	s.receiver.onMessage = fn
}

// Run is the receive loop. It blocks until ctx is done.
func (s *ZeroMQService) Run(ctx context.Context) error {
	return s.receiver.run(ctx)
}

// PublishMessage sends payload on topic
func (s *ZeroMQService) PublishMessage(topic string, payload []byte) error {
	return s.sender.PublishMessage(topic, payload)
}

// Close releases both sockets and the context. Run must have returned.
func (s *ZeroMQService) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Infof("Stopping ZeroMQ service")
		s.closeErr = multierr.Combine(
			s.receiver.close(),
			s.sender.close(),
			s.ctx.Term(),
		)
	})
	return s.closeErr
}
