package botclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const answerAttemptedSubscription = `subscription AnswerAttempted($sessionId: ID!, $questionId: ID!) {
  answerAttempted(sessionId: $sessionId, questionId: $questionId) {
    sessionId
    questionId
    result
    attempts
    state
    validAnswer
    error
  }
}`

// wsMessage is one graphql-transport-ws protocol frame.
type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	wsConnectionInit = "connection_init"
	wsConnectionAck  = "connection_ack"
	wsSubscribe      = "subscribe"
	wsNext           = "next"
	wsError          = "error"
	wsComplete       = "complete"
	wsPing           = "ping"
	wsPong           = "pong"
)

const wsHandshakeTimeout = 15 * time.Second

// wsSubscription is one answerAttempted subscription over its own websocket
// connection, speaking the graphql-transport-ws subprotocol.
type wsSubscription struct {
	conn    *websocket.Conn
	id      string
	notices chan AttemptNotice

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ Subscription = (*wsSubscription)(nil)

// SubscribeAnswerAttempts implements [Client].
func (c *HTTPClient) SubscribeAnswerAttempts(ctx context.Context, sessionID, questionID string) (Subscription, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{"graphql-transport-ws"},
		HandshakeTimeout: wsHandshakeTimeout,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.Token)

	conn, resp, err := dialer.DialContext(ctx, c.opts.WebsocketURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing subscription endpoint (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing subscription endpoint: %w", err)
	}

	sub := &wsSubscription{
		conn:    conn,
		id:      uuid.NewString(),
		notices: make(chan AttemptNotice, 1),
	}

	if err := sub.handshake(ctx, c.opts.Token); err != nil {
		conn.Close()
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"query": answerAttemptedSubscription,
		"variables": map[string]any{
			"sessionId":  sessionID,
			"questionId": questionID,
		},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encoding subscribe payload: %w", err)
	}

	if err := sub.write(wsMessage{ID: sub.id, Type: wsSubscribe, Payload: payload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("starting subscription: %w", err)
	}

	go sub.readLoop(sessionID, questionID)

	return sub, nil
}

// handshake performs connection_init / connection_ack.
func (s *wsSubscription) handshake(ctx context.Context, token string) error {
	initPayload, err := json.Marshal(map[string]string{"authorization": token})
	if err != nil {
		return fmt.Errorf("encoding init payload: %w", err)
	}

	if err := s.write(wsMessage{Type: wsConnectionInit, Payload: initPayload}); err != nil {
		return fmt.Errorf("sending connection_init: %w", err)
	}

	deadline := time.Now().Add(wsHandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	var msg wsMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("awaiting connection_ack: %w", err)
	}
	if msg.Type != wsConnectionAck {
		return fmt.Errorf("awaiting connection_ack: got %q", msg.Type)
	}

	// subscription reads have no deadline; the consumer owns timeouts.
	return s.conn.SetReadDeadline(time.Time{})
}

// Events implements [Subscription].
func (s *wsSubscription) Events() <-chan AttemptNotice {
	return s.notices
}

// Close implements [Subscription].
func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() {
		// best effort: tell the server we are done before tearing down.
		if err := s.write(wsMessage{ID: s.id, Type: wsComplete}); err != nil {
			slog.Debug("subscription complete frame not sent", "error", err)
		}
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *wsSubscription) write(msg wsMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

// readLoop pumps protocol frames into the notices channel until the server
// completes, the stream errors, or Close tears down the connection.
func (s *wsSubscription) readLoop(sessionID, questionID string) {
	defer close(s.notices)

	for {
		var msg wsMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			// Close() produces a read error on the blocked reader; either way
			// the stream is over and the consumer gets the reason.
			s.notices <- AttemptNotice{Err: fmt.Errorf("subscription stream for session %s question %s: %w", sessionID, questionID, err)}
			return
		}

		switch msg.Type {
		case wsNext:
			var payload struct {
				Data struct {
					AnswerAttempted AnswerAttemptEvent `json:"answerAttempted"`
				} `json:"data"`
			}
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				s.notices <- AttemptNotice{Err: fmt.Errorf("decoding answerAttempted event: %w", err)}
				return
			}
			s.notices <- AttemptNotice{Event: payload.Data.AnswerAttempted}

		case wsError:
			s.notices <- AttemptNotice{Err: fmt.Errorf("subscription error: %s", string(msg.Payload))}
			return

		case wsComplete:
			return

		case wsPing:
			if err := s.write(wsMessage{Type: wsPong}); err != nil {
				slog.Debug("pong not sent", "error", err)
			}

		default:
			slog.Debug("ignoring unexpected subscription frame", "type", msg.Type)
		}
	}
}
