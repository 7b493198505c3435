// Package persona provides the scripted candidates that sit on the human
// side of an interview. A persona is stateful: it accumulates its own
// conversation history, so every evaluation attempt gets a fresh instance.
package persona

import "context"

// Persona produces the next human-like reply to a bot message.
type Persona interface {
	// Name identifies the persona in task identities, logs and reports.
	Name() string

	// Chat returns the persona's reply to the bot's message. Implementations
	// own their message history; Chat must not be called concurrently.
	Chat(ctx context.Context, botMessage string) (string, error)
}

// Builder constructs a fresh persona instance for one attempt.
type Builder interface {
	// PersonaName is the stable identity used for task enumeration and the
	// skip-list, before any instance exists.
	PersonaName() string

	// Build returns a new persona with empty history.
	Build() Persona
}
