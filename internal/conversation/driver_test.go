package conversation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/persona"
)

// scriptedBot fakes the remote service for one (session, question) pair:
// each submitted answer triggers the next scripted push event, the way the
// real bot asynchronously publishes after attemptAnswer.
type scriptedBot struct {
	mu      sync.Mutex
	script  []botclient.AnswerAttemptEvent
	closeCh bool // close the stream after the script runs out

	notices   chan botclient.AttemptNotice
	chClosed  bool
	answers   []string
	completed int
	subClosed int
}

func newScriptedBot(closeCh bool, script ...botclient.AnswerAttemptEvent) *scriptedBot {
	return &scriptedBot{
		script:  script,
		closeCh: closeCh,
		notices: make(chan botclient.AttemptNotice, len(script)+1),
	}
}

func (b *scriptedBot) OrderAssessment(context.Context, botclient.OrderRequest) (*botclient.Assessment, error) {
	panic("not used")
}

func (b *scriptedBot) GetSession(context.Context, string, string) (*botclient.SessionSnapshot, error) {
	panic("not used")
}

func (b *scriptedBot) AttemptAnswer(_ context.Context, _, _, answer string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.answers = append(b.answers, answer)
	if len(b.script) > 0 {
		b.notices <- botclient.AttemptNotice{Event: b.script[0]}
		b.script = b.script[1:]
		if len(b.script) == 0 && b.closeCh && !b.chClosed {
			close(b.notices)
			b.chClosed = true
		}
	}
	return nil
}

func (b *scriptedBot) MarkSessionCompleted(context.Context, string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed++
	return nil
}

func (b *scriptedBot) SubscribeAnswerAttempts(context.Context, string, string) (botclient.Subscription, error) {
	return b, nil
}

func (b *scriptedBot) Events() <-chan botclient.AttemptNotice { return b.notices }

func (b *scriptedBot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subClosed++
	if !b.chClosed {
		close(b.notices)
		b.chClosed = true
	}
	return nil
}

func session(questions ...string) *botclient.SessionSnapshot {
	s := &botclient.SessionSnapshot{ID: "session-1", State: botclient.SessionReady}
	for _, q := range questions {
		s.Questions = append(s.Questions, botclient.Question{ID: q})
	}
	return s
}

func TestRun_ThreeQuestionScript(t *testing.T) {
	bot := newScriptedBot(false,
		botclient.AnswerAttemptEvent{Result: "<p>Question one?</p>"},
		botclient.AnswerAttemptEvent{Result: "<p>Question two?</p>"},
		botclient.AnswerAttemptEvent{Result: "<p>Question three?</p>"},
		botclient.AnswerAttemptEvent{State: botclient.AttemptCompleted},
	)

	p := &persona.Scripted{ScriptName: "IDEAL_CANDIDATE", Replies: []string{"answer one", "answer two", "answer three"}}

	transcript, err := NewDriver(bot, p, nil).Run(t.Context(), session("question-1"))
	require.NoError(t, err)

	// three bot turns and three persona turns; the greeting is not a turn
	require.Len(t, transcript, 6)
	assert.Equal(t, Turn{Speaker: SpeakerBot, Text: "Question one?"}, transcript[0])
	assert.Equal(t, Turn{Speaker: SpeakerPersona, Text: "answer one"}, transcript[1])
	assert.Equal(t, Turn{Speaker: SpeakerBot, Text: "Question three?"}, transcript[4])
	assert.Equal(t, Turn{Speaker: SpeakerPersona, Text: "answer three"}, transcript[5])

	// greeting + three replies were submitted
	require.Len(t, bot.answers, 4)
	assert.Equal(t, "answer three", bot.answers[3])

	assert.Equal(t, 1, bot.completed)
	assert.Equal(t, 1, bot.subClosed)
}

func TestRun_StreamEndCountsAsCompleted(t *testing.T) {
	bot := newScriptedBot(true,
		botclient.AnswerAttemptEvent{Result: "Only question"},
	)

	p := &persona.Scripted{ScriptName: "TERSE", Replies: []string{"short answer"}}

	transcript, err := NewDriver(bot, p, nil).Run(t.Context(), session("question-1"))
	require.NoError(t, err)

	require.Len(t, transcript, 2)
	assert.Equal(t, 1, bot.completed)
	assert.Equal(t, 1, bot.subClosed)
}

func TestRun_NoInitialQuestion(t *testing.T) {
	bot := newScriptedBot(false)
	p := &persona.Scripted{ScriptName: "IDEAL_CANDIDATE"}

	_, err := NewDriver(bot, p, nil).Run(t.Context(), session())
	require.ErrorIs(t, err, ErrNoInitialQuestion)

	// nothing was submitted and no subscription was opened
	assert.Empty(t, bot.answers)
	assert.Zero(t, bot.subClosed)
}

func TestRun_ErrorOnlyEventIsFatal(t *testing.T) {
	bot := newScriptedBot(false,
		botclient.AnswerAttemptEvent{ErrorMsg: "bot backend unavailable"},
	)

	p := &persona.Scripted{ScriptName: "IDEAL_CANDIDATE"}

	_, err := NewDriver(bot, p, nil).Run(t.Context(), session("question-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot backend unavailable")

	// the subscription is still released on the failure path
	assert.Equal(t, 1, bot.subClosed)
	assert.Zero(t, bot.completed)
}
