package persona

import "context"

// Scripted is a persona with a fixed reply sequence. Once the script runs
// out it repeats its final line. Used for smoke runs against a live service
// and for driving deterministic tests.
type Scripted struct {
	ScriptName string
	Replies    []string

	next int
}

var _ Persona = (*Scripted)(nil)

func (s *Scripted) Name() string { return s.ScriptName }

func (s *Scripted) Chat(_ context.Context, _ string) (string, error) {
	if len(s.Replies) == 0 {
		return "I don't have anything to add.", nil
	}

	reply := s.Replies[min(s.next, len(s.Replies)-1)]
	s.next++
	return reply, nil
}

// ScriptedBuilder yields fresh Scripted instances sharing one script.
type ScriptedBuilder struct {
	ScriptName string
	Replies    []string
}

var _ Builder = (*ScriptedBuilder)(nil)

func (b *ScriptedBuilder) PersonaName() string { return b.ScriptName }

func (b *ScriptedBuilder) Build() Persona {
	return &Scripted{ScriptName: b.ScriptName, Replies: b.Replies}
}
