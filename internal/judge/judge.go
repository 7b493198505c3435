// Package judge scores a finished, graded interview with an LLM. The judge
// reads the transcript and the remote grading feedback; it never talks to
// the interview-bot service itself.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/conversation"
	"github.com/evalops/botvet/internal/llm"
)

// CheckStatus is the verdict of one judge check.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "PASS"
	CheckFailed  CheckStatus = "FAIL"
	CheckSkipped CheckStatus = "SKIP"
)

// Check is one named judgement over the interview, with the model's
// reasoning and optional verbatim evidence from the transcript.
type Check struct {
	Name      string      `json:"name"`
	Status    CheckStatus `json:"status"`
	Reasoning string      `json:"reasoning"`
	Evidence  string      `json:"evidence,omitempty"`
}

// Evaluation is the judge's full verdict for one interview.
type Evaluation struct {
	Summary                  string  `json:"summary"`
	GradingSummaryEvaluation string  `json:"gradingSummaryEvaluation"`
	Checks                   []Check `json:"checks"`
}

// verdictSchema constrains the shape of the model's JSON reply. Anything
// that fails validation is treated as a judge error and retried upstream.
const verdictSchema = `{
	"type": "object",
	"required": ["summary", "gradingSummaryEvaluation", "checks"],
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"gradingSummaryEvaluation": {"type": "string"},
		"checks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "status", "reasoning"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"status": {"enum": ["PASS", "FAIL", "SKIP"]},
					"reasoning": {"type": "string"},
					"evidence": {"type": "string"}
				}
			}
		}
	}
}`

const systemPrompt = `You are a strict quality reviewer for an AI interview bot.
You are given the transcript of a completed mock interview between the bot and a
synthetic candidate, plus the bot's own grading feedback for the answers.

Evaluate the INTERVIEWER, not the candidate. Run these checks:
- "stays_on_topic": the bot's questions stay on the stated skill.
- "no_answer_leakage": the bot never reveals the expected answer.
- "coherent_followups": each follow-up relates to the candidate's last reply.
- "grading_consistency": the grading feedback matches what actually happened.

Reply with a single JSON object and nothing else:
{"summary": "...", "gradingSummaryEvaluation": "...",
 "checks": [{"name": "...", "status": "PASS"|"FAIL"|"SKIP", "reasoning": "...", "evidence": "..."}]}`

// Judge evaluates graded interviews. Safe for concurrent use.
type Judge struct {
	chatter llm.Chatter
	model   string
	log     *slog.Logger

	schema *jsonschema.Schema
}

func New(chatter llm.Chatter, model string, log *slog.Logger) (*Judge, error) {
	if log == nil {
		log = slog.Default()
	}

	raw, err := jsonschema.UnmarshalJSON(strings.NewReader(verdictSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing verdict schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", raw); err != nil {
		return nil, fmt.Errorf("adding verdict schema resource: %w", err)
	}

	schema, err := compiler.Compile("verdict.json")
	if err != nil {
		return nil, fmt.Errorf("compiling verdict schema: %w", err)
	}

	return &Judge{chatter: chatter, model: model, log: log, schema: schema}, nil
}

// Evaluate asks the model for a verdict over the transcript and graded
// session. The reply must be schema-valid JSON; anything else is an error
// (the caller retries, the call is a pure read).
func (j *Judge) Evaluate(ctx context.Context, transcript []conversation.Turn, session *botclient.SessionSnapshot) (*Evaluation, error) {
	userPrompt, err := buildUserPrompt(transcript, session)
	if err != nil {
		return nil, err
	}

	reply, err := j.chatter.Chat(ctx, j.model, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	})
	if err != nil {
		return nil, fmt.Errorf("judge chat call: %w", err)
	}

	verdict := stripCodeFence(reply)

	var value any
	if err := json.Unmarshal([]byte(verdict), &value); err != nil {
		return nil, fmt.Errorf("judge reply is not valid JSON: %w", err)
	}

	if err := j.schema.Validate(value); err != nil {
		return nil, fmt.Errorf("judge reply failed validation: %w", err)
	}

	var eval Evaluation
	if err := json.Unmarshal([]byte(verdict), &eval); err != nil {
		return nil, fmt.Errorf("decoding judge reply: %w", err)
	}

	j.log.Info("judge verdict received", "session", session.ID, "checks", len(eval.Checks))
	return &eval, nil
}

func buildUserPrompt(transcript []conversation.Turn, session *botclient.SessionSnapshot) (string, error) {
	transcriptJSON, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing transcript: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Transcript:\n")
	sb.Write(transcriptJSON)
	sb.WriteString("\n\nGrading feedback:\n")

	for _, q := range session.Questions {
		if q.CorrectnessGrading == nil {
			continue
		}
		score := "unscored"
		if q.CorrectnessGrading.Score != nil {
			score = fmt.Sprintf("%.2f", *q.CorrectnessGrading.Score)
		}
		fmt.Fprintf(&sb, "- question %s: score %s, feedback: %s\n", q.ID, score, q.CorrectnessGrading.Feedback)
	}

	return sb.String(), nil
}

// stripCodeFence tolerates models that wrap their JSON in a markdown fence.
func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
