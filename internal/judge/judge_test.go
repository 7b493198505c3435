package judge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/conversation"
	"github.com/evalops/botvet/internal/llm"
)

type cannedChatter struct {
	reply    string
	err      error
	messages []llm.Message
}

func (c *cannedChatter) Chat(_ context.Context, _ string, messages []llm.Message) (string, error) {
	c.messages = messages
	return c.reply, c.err
}

func gradedSession() *botclient.SessionSnapshot {
	score := 0.9
	return &botclient.SessionSnapshot{
		ID:    "session-1",
		State: botclient.SessionGraded,
		Questions: []botclient.Question{{
			ID:                 "q1",
			CorrectnessGrading: &botclient.CorrectnessGrading{Score: &score, Feedback: "well reasoned"},
		}},
	}
}

var sampleTranscript = []conversation.Turn{
	{Speaker: conversation.SpeakerBot, Text: "Explain goroutine leaks."},
	{Speaker: conversation.SpeakerPersona, Text: "A goroutine leak happens when..."},
}

const validVerdict = `{
	"summary": "The bot ran a focused interview.",
	"gradingSummaryEvaluation": "Grading matches the transcript.",
	"checks": [
		{"name": "stays_on_topic", "status": "PASS", "reasoning": "All questions were about concurrency."},
		{"name": "no_answer_leakage", "status": "FAIL", "reasoning": "The bot hinted at the answer.", "evidence": "Explain goroutine leaks."}
	]
}`

func TestEvaluate(t *testing.T) {
	chatter := &cannedChatter{reply: validVerdict}
	j, err := New(chatter, "judge-model", nil)
	require.NoError(t, err)

	eval, err := j.Evaluate(t.Context(), sampleTranscript, gradedSession())
	require.NoError(t, err)

	assert.Equal(t, "The bot ran a focused interview.", eval.Summary)
	require.Len(t, eval.Checks, 2)
	assert.Equal(t, CheckPassed, eval.Checks[0].Status)
	assert.Equal(t, CheckFailed, eval.Checks[1].Status)

	// the prompt carries both the transcript and the grading feedback
	require.Len(t, chatter.messages, 2)
	assert.Contains(t, chatter.messages[1].Content, "Explain goroutine leaks.")
	assert.Contains(t, chatter.messages[1].Content, "well reasoned")
	assert.Contains(t, chatter.messages[1].Content, "0.90")
}

func TestEvaluate_FencedReply(t *testing.T) {
	chatter := &cannedChatter{reply: "```json\n" + validVerdict + "\n```"}
	j, err := New(chatter, "judge-model", nil)
	require.NoError(t, err)

	eval, err := j.Evaluate(t.Context(), sampleTranscript, gradedSession())
	require.NoError(t, err)
	assert.Len(t, eval.Checks, 2)
}

func TestEvaluate_NonJSONReply(t *testing.T) {
	chatter := &cannedChatter{reply: "I think the interview went well overall."}
	j, err := New(chatter, "judge-model", nil)
	require.NoError(t, err)

	_, err = j.Evaluate(t.Context(), sampleTranscript, gradedSession())
	require.ErrorContains(t, err, "not valid JSON")
}

func TestEvaluate_SchemaViolation(t *testing.T) {
	// "status" outside the allowed set
	chatter := &cannedChatter{reply: `{
		"summary": "ok",
		"gradingSummaryEvaluation": "ok",
		"checks": [{"name": "stays_on_topic", "status": "MAYBE", "reasoning": "unsure"}]
	}`}
	j, err := New(chatter, "judge-model", nil)
	require.NoError(t, err)

	_, err = j.Evaluate(t.Context(), sampleTranscript, gradedSession())
	require.ErrorContains(t, err, "failed validation")
}
