// Package turnstream bridges the raw answerAttempted push subscription into
// a deduplicated, ordered, single-consumer stream of conversation turns for
// one (session, question) pair.
package turnstream

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/evalops/botvet/internal/botclient"
)

// ErrStreamClosed is returned by AwaitNextTurn once the stream has delivered
// its terminal event (or the subscription ended) and nothing further will
// arrive.
var ErrStreamClosed = errors.New("turn stream closed")

// Stream owns exactly one subscription and exposes a pull-style "wait for
// the next new turn" call over it. The raw channel is at-least-once: the
// same result may be delivered repeatedly, or arrive stale relative to what
// the consumer already observed. Stream guarantees that:
//
//   - a given result value reaches the consumer at most once in a row
//     (filtered by comparing against the last forwarded result), and
//   - a terminal Completed event is always the final event delivered.
//
// No timeout is enforced here; that is the supervisor's job.
type Stream struct {
	sub botclient.Subscription

	// accepted holds at most one forwarded event; the pump waits for the
	// consumer before accepting more, so no accepted event is ever lost.
	accepted chan botclient.AttemptNotice
	done     chan struct{}

	closeOnce sync.Once
	log       *slog.Logger
}

// New wraps a live subscription. The caller must Close the stream on every
// exit path; Close also closes the underlying subscription.
func New(sub botclient.Subscription, log *slog.Logger) *Stream {
	if log == nil {
		log = slog.Default()
	}

	s := &Stream{
		sub:      sub,
		accepted: make(chan botclient.AttemptNotice, 1),
		done:     make(chan struct{}),
		log:      log,
	}

	go s.pump()
	return s
}

// AwaitNextTurn blocks until the next accepted event is available and
// returns it. Sequential calls each return a new event; an event is never
// replayed. A raw stream error is returned as the error of the wait that
// observes it. After the terminal event, ErrStreamClosed is returned.
func (s *Stream) AwaitNextTurn(ctx context.Context) (botclient.AnswerAttemptEvent, error) {
	select {
	case notice, ok := <-s.accepted:
		if !ok {
			return botclient.AnswerAttemptEvent{}, ErrStreamClosed
		}
		if notice.Err != nil {
			return botclient.AnswerAttemptEvent{}, notice.Err
		}
		return notice.Event, nil
	case <-ctx.Done():
		return botclient.AnswerAttemptEvent{}, ctx.Err()
	}
}

// Close unsubscribes from the raw stream. Safe to call multiple times and
// after the stream has already completed or errored.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.sub.Close(); err != nil {
			s.log.Debug("closing subscription", "error", err)
		}
	})
}

// pump consumes the raw subscription until it ends, forwarding accepted
// events to the consumer. Dropped duplicates keep the raw channel moving
// even when the consumer is between waits.
func (s *Stream) pump() {
	defer close(s.accepted)

	var lastResult string

	for notice := range s.sub.Events() {
		if notice.Err != nil {
			s.forward(notice)
			s.drain()
			return
		}

		ev := notice.Event
		switch {
		case ev.State == botclient.AttemptCompleted:
			s.forward(notice)
			s.drain()
			return

		case ev.Result == "" && ev.State == "" && ev.ErrorMsg != "":
			// a bare error event means the turn failed server-side; it is
			// terminal for this stream and the consumer decides what to do.
			s.forward(notice)
			s.drain()
			return

		case ev.Result != "" && ev.Result != lastResult:
			lastResult = ev.Result
			s.forward(notice)

		default:
			// duplicate result, or an event with neither a state nor a new
			// result; nothing for the consumer in it.
			s.log.Debug("dropping stale answerAttempted event",
				"session", ev.SessionID,
				"question", ev.QuestionID,
				"hasResult", ev.Result != "")
		}
	}
}

// drain keeps consuming the raw channel after the terminal event so the
// transport's reader can never wedge on its buffer; it unblocks once Close
// tears the subscription down and the raw channel closes.
func (s *Stream) drain() {
	for range s.sub.Events() {
	}
}

// forward hands a notice to the consumer, or gives up once the stream is
// closed.
func (s *Stream) forward(notice botclient.AttemptNotice) {
	select {
	case s.accepted <- notice:
	case <-s.done:
	}
}
