package persona

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/evalops/botvet/internal/llm"
)

// Archetype describes a rule-templated candidate: who they pretend to be and
// how they answer. Archetypes come from the built-in set or from config
// blocks (decoded with mapstructure).
type Archetype struct {
	Name       string   `mapstructure:"name"`
	Background string   `mapstructure:"background"`
	Style      string   `mapstructure:"style"`
	Quirks     []string `mapstructure:"quirks"`
}

// DecodeArchetype builds an Archetype from a raw config block.
func DecodeArchetype(raw map[string]any) (Archetype, error) {
	var a Archetype
	if err := mapstructure.Decode(raw, &a); err != nil {
		return Archetype{}, fmt.Errorf("decoding persona archetype: %w", err)
	}
	if a.Name == "" {
		return Archetype{}, fmt.Errorf("persona archetype requires a name")
	}
	return a, nil
}

// BuiltinArchetypes is the default persona set used when config declares
// none of its own.
func BuiltinArchetypes() []Archetype {
	return []Archetype{
		{
			Name:       "IDEAL_CANDIDATE",
			Background: "A senior engineer with a decade of hands-on experience in the skill being assessed.",
			Style:      "Answers precisely and completely, with concrete examples, in three to six sentences.",
		},
		{
			Name:       "NERVOUS_CANDIDATE",
			Background: "A capable junior engineer in their first round of technical interviews.",
			Style:      "Answers correctly but hesitantly, second-guesses, occasionally asks for clarification.",
			Quirks:     []string{"starts many answers with 'I think'", "apologizes when unsure"},
		},
		{
			Name:       "TERSE_CANDIDATE",
			Background: "An experienced engineer who dislikes interviews.",
			Style:      "Answers in one or two short sentences, never volunteers extra detail.",
		},
		{
			Name:       "EVASIVE_CANDIDATE",
			Background: "A candidate with shallow knowledge who tries to talk around gaps.",
			Style:      "Deflects hard questions with generalities and buzzwords, rarely commits to specifics.",
		},
	}
}

// archetypePersona is an LLM-backed persona. It keeps its full message
// history as exclusive internal state so each reply stays in character and
// in context.
type archetypePersona struct {
	archetype Archetype
	chatter   llm.Chatter
	model     string
	history   []llm.Message
}

var _ Persona = (*archetypePersona)(nil)

// ArchetypeBuilder builds fresh archetype personas against one LLM client.
type ArchetypeBuilder struct {
	Archetype Archetype
	Chatter   llm.Chatter
	Model     string
}

var _ Builder = (*ArchetypeBuilder)(nil)

func (b *ArchetypeBuilder) PersonaName() string { return b.Archetype.Name }

func (b *ArchetypeBuilder) Build() Persona {
	p := &archetypePersona{
		archetype: b.Archetype,
		chatter:   b.Chatter,
		model:     b.Model,
	}
	p.history = append(p.history, llm.Message{Role: llm.RoleSystem, Content: p.systemPrompt()})
	return p
}

func (p *archetypePersona) Name() string { return p.archetype.Name }

func (p *archetypePersona) Chat(ctx context.Context, botMessage string) (string, error) {
	p.history = append(p.history, llm.Message{Role: llm.RoleUser, Content: botMessage})

	reply, err := p.chatter.Chat(ctx, p.model, p.history)
	if err != nil {
		return "", fmt.Errorf("persona %s reply: %w", p.archetype.Name, err)
	}

	p.history = append(p.history, llm.Message{Role: llm.RoleAssistant, Content: reply})
	return reply, nil
}

func (p *archetypePersona) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are playing a candidate in a technical job interview conducted by an AI interviewer.\n\n")
	sb.WriteString("Background: ")
	sb.WriteString(p.archetype.Background)
	sb.WriteString("\nAnswering style: ")
	sb.WriteString(p.archetype.Style)
	sb.WriteString("\n")
	for _, q := range p.archetype.Quirks {
		sb.WriteString("- ")
		sb.WriteString(q)
		sb.WriteString("\n")
	}
	sb.WriteString("\nStay in character. Reply only with what the candidate would say, no commentary.")
	return sb.String()
}
