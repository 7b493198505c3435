// Package conversation drives the turn loop of one interview: submit the
// persona's reply, await the bot's next message, repeat until the bot
// declares the session complete.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/persona"
	"github.com/evalops/botvet/internal/turnstream"
)

// ErrNoInitialQuestion means the provisioned session carries no question to
// interview against. Retrying the same session is pointless; the supervisor
// re-provisions instead.
var ErrNoInitialQuestion = errors.New("session has no initial question")

// Speaker identifies the side of a conversation turn.
type Speaker string

const (
	SpeakerBot     Speaker = "bot"
	SpeakerPersona Speaker = "persona"
)

// Turn is one transcript entry. The transcript is append-only and lives
// only for the duration of one attempt.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// openingGreeting elicits the bot's first real question. It is not counted
// as a transcript turn.
const openingGreeting = "Hello! I'm ready to begin the interview."

// Driver runs the conversation state machine for a single session's first
// question against one persona instance.
type Driver struct {
	client  botclient.Client
	persona persona.Persona
	log     *slog.Logger
}

func NewDriver(client botclient.Client, p persona.Persona, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{client: client, persona: p, log: log}
}

// Run drives the interview to completion and returns the full transcript.
// The event subscription is released on every exit path.
func (d *Driver) Run(ctx context.Context, session *botclient.SessionSnapshot) ([]Turn, error) {
	if len(session.Questions) == 0 {
		return nil, fmt.Errorf("session %s: %w", session.ID, ErrNoInitialQuestion)
	}
	questionID := session.Questions[0].ID

	sub, err := d.client.SubscribeAnswerAttempts(ctx, session.ID, questionID)
	if err != nil {
		return nil, fmt.Errorf("subscribing to answer attempts: %w", err)
	}

	stream := turnstream.New(sub, d.log)
	defer stream.Close()

	if err := d.client.AttemptAnswer(ctx, session.ID, questionID, openingGreeting); err != nil {
		return nil, fmt.Errorf("submitting opening greeting: %w", err)
	}

	var transcript []Turn

	for {
		ev, err := stream.AwaitNextTurn(ctx)
		if errors.Is(err, turnstream.ErrStreamClosed) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("awaiting next turn: %w", err)
		}

		if ev.State == botclient.AttemptCompleted {
			break
		}
		if ev.Result == "" && ev.ErrorMsg != "" {
			return nil, fmt.Errorf("turn failed for session %s question %s: %s", session.ID, questionID, ev.ErrorMsg)
		}

		botMessage := StripMarkup(ev.Result)
		transcript = append(transcript, Turn{Speaker: SpeakerBot, Text: botMessage})
		d.log.Debug("bot turn received", "session", session.ID, "turns", len(transcript))

		reply, err := d.persona.Chat(ctx, botMessage)
		if err != nil {
			return nil, fmt.Errorf("generating persona reply: %w", err)
		}
		transcript = append(transcript, Turn{Speaker: SpeakerPersona, Text: reply})

		if err := d.client.AttemptAnswer(ctx, session.ID, questionID, reply); err != nil {
			return nil, fmt.Errorf("submitting persona reply: %w", err)
		}
	}

	if err := d.client.MarkSessionCompleted(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("marking session %s completed: %w", session.ID, err)
	}

	d.log.Info("conversation completed",
		"session", session.ID,
		"persona", d.persona.Name(),
		"turns", len(transcript))

	return transcript, nil
}
