package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/skyspect/inspection/pkg/streaming"
)

const (
	outQueueSize = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// stream owns one server connection and the goroutines pumping the live
// inspection feed over it. Envelopes queue on outCh and a single writer
// drains them; server acknowledgements resolve waiters registered per
// message type.
type stream struct {
	mu           sync.Mutex
	conn         *ws.Conn
	outCh        chan streaming.Envelope
	done         chan struct{}
	closed       bool
	reconnecting bool

	wsURL  string
	secret string

	// Mission announcement. Held for the lifetime of the mission and
	// replayed after every reconnect so the server can re-associate the
	// feed with its mission.
	header *streaming.Envelope

	// Ack waiters keyed by the message type being acknowledged.
	waiters map[string]chan struct{}

	backoffBase time.Duration

	logger *slog.Logger
}

func newStream(logger *slog.Logger) *stream {
	return &stream{
		outCh:       make(chan streaming.Envelope, outQueueSize),
		done:        make(chan struct{}),
		waiters:     make(map[string]chan struct{}),
		backoffBase: time.Second,
		logger:      logger,
	}
}

// open dials the server and starts the reader and writer.
func (s *stream) open(rawURL, secret string) error {
	s.wsURL = rawURL
	s.secret = secret

	conn, err := s.dial()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.writeLoop()
	go s.readLoop()
	return nil
}

// dial performs a single handshake, passing the shared secret as a
// query parameter.
func (s *stream) dial() (*ws.Conn, error) {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", s.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// setHeader records the mission announcement replayed on reconnect.
func (s *stream) setHeader(env streaming.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = &env
}

// clearHeader forgets the announcement once the mission has ended.
func (s *stream) clearHeader() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = nil
}

// publish queues an envelope for the writer. Non-blocking; the feed is
// a lossy observer, so a full queue drops the envelope.
func (s *stream) publish(env streaming.Envelope) {
	select {
	case s.outCh <- env:
	default:
		s.logger.Warn("Stream queue full, dropping envelope", "type", env.Type)
	}
}

// publishAndWait queues an envelope and blocks until the server
// acknowledges that message type or the timeout expires.
func (s *stream) publishAndWait(env streaming.Envelope, timeout time.Duration) error {
	waiter := s.addWaiter(env.Type)
	defer s.removeWaiter(env.Type, waiter)

	s.publish(env)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-waiter:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %q", env.Type)
	case <-s.done:
		return fmt.Errorf("stream closed while waiting for ack of %q", env.Type)
	}
}

func (s *stream) addWaiter(msgType string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.waiters[msgType] = ch
	return ch
}

func (s *stream) removeWaiter(msgType string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiters[msgType] == ch {
		delete(s.waiters, msgType)
	}
}

// resolveAck wakes the waiter registered for the acknowledged type.
func (s *stream) resolveAck(msgType string) {
	s.mu.Lock()
	ch, ok := s.waiters[msgType]
	if ok {
		delete(s.waiters, msgType)
	}
	s.mu.Unlock()

	if ok {
		close(ch)
	}
}

// writeLoop drains outCh onto the connection. One writer runs per
// connection; it exits on error or shutdown.
func (s *stream) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.outCh:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()

			if conn == nil {
				continue
			}

			if err := writeEnvelope(conn, env); err != nil {
				s.logger.Warn("Stream write error", "type", env.Type, "error", err)
				go s.reconnect()
				return
			}
		}
	}
}

func writeEnvelope(conn *ws.Conn, env streaming.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop consumes server acknowledgements and resolves their waiters.
func (s *stream) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Warn("Stream read error", "error", err)
			go s.reconnect()
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			s.logger.Debug("Unexpected message from server", "raw", string(message))
			continue
		}
		s.resolveAck(ack.For)
	}
}

// reconnect re-establishes the connection with exponential backoff,
// replays the mission header, and restarts the reader and writer. Both
// loops report failures here, so a flag keeps a second caller from
// racing a reconnect already in flight.
func (s *stream) reconnect() {
	s.mu.Lock()
	if s.closed || s.reconnecting {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	backoff := s.backoffBase
	s.mu.Unlock()

	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-s.done:
			return
		default:
		}

		s.logger.Info("Reconnecting stream", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		header := s.header
		s.mu.Unlock()

		if header != nil {
			if err := writeEnvelope(conn, *header); err != nil {
				s.logger.Warn("Mission header replay failed", "error", err)
				_ = conn.Close()
				continue
			}
		}

		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()

		s.logger.Info("Stream reconnected", "attempt", attempt)
		go s.writeLoop()
		go s.readLoop()
		return
	}

	s.mu.Lock()
	s.reconnecting = false
	s.mu.Unlock()
	s.logger.Error("Stream reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// close sends a close frame and stops the goroutines.
func (s *stream) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
