package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/judge"
	"github.com/evalops/botvet/internal/llm"
	"github.com/evalops/botvet/internal/persona"
	"github.com/evalops/botvet/internal/provision"
	"github.com/evalops/botvet/internal/report"
)

// fakeService simulates the whole interview-bot service for one pipeline
// run: ordering (with scripted failures), session polling, the push
// subscription, and completion.
type fakeService struct {
	mu sync.Mutex

	orderFailures int      // fail this many orders before succeeding
	botScript     []string // question turns emitted before Completed
	resultURL     string   // per-assessment result URL template
	silent        bool     // never publish any event

	orders          int
	privilegedPolls int
	answers         []string
	marked          int

	subs []*fakeSubscription
}

type fakeSubscription struct {
	script  []string
	notices chan botclient.AttemptNotice
	closed  int
}

func (s *fakeSubscription) Events() <-chan botclient.AttemptNotice { return s.notices }

func newFakeService(orderFailures int, botScript ...string) *fakeService {
	return &fakeService{
		orderFailures: orderFailures,
		botScript:     botScript,
		resultURL:     "https://bot.example.com/results/%s?secret=sk-1",
	}
}

func (f *fakeService) OrderAssessment(_ context.Context, req botclient.OrderRequest) (*botclient.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders++
	if f.orders <= f.orderFailures {
		return nil, errors.New("order service unavailable")
	}

	id := fmt.Sprintf("assessment-%d", f.orders)
	return &botclient.Assessment{
		ID:        id,
		URL:       "https://bot.example.com/session/" + id,
		ResultURL: fmt.Sprintf(f.resultURL, id),
	}, nil
}

func (f *fakeService) GetSession(_ context.Context, sessionID, secretKey string) (*botclient.SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if secretKey == "" {
		return &botclient.SessionSnapshot{
			ID:        sessionID,
			State:     botclient.SessionReady,
			Questions: []botclient.Question{{ID: "q1"}},
		}, nil
	}

	f.privilegedPolls++
	score := 0.8
	return &botclient.SessionSnapshot{
		ID:    sessionID,
		State: botclient.SessionGraded,
		Questions: []botclient.Question{{
			ID:                 "q1",
			CorrectnessGrading: &botclient.CorrectnessGrading{Score: &score, Feedback: "adequate"},
		}},
	}, nil
}

func (f *fakeService) AttemptAnswer(_ context.Context, _, _, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.answers = append(f.answers, answer)
	if f.silent {
		return nil
	}

	sub := f.subs[len(f.subs)-1]
	if len(sub.script) > 0 {
		sub.notices <- botclient.AttemptNotice{Event: botclient.AnswerAttemptEvent{Result: sub.script[0]}}
		sub.script = sub.script[1:]
	} else {
		sub.notices <- botclient.AttemptNotice{Event: botclient.AnswerAttemptEvent{State: botclient.AttemptCompleted}}
	}
	return nil
}

func (f *fakeService) MarkSessionCompleted(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked++
	return nil
}

func (f *fakeService) SubscribeAnswerAttempts(context.Context, string, string) (botclient.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &fakeSubscription{
		script:  append([]string(nil), f.botScript...),
		notices: make(chan botclient.AttemptNotice, len(f.botScript)+1),
	}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (s *fakeSubscription) Close() error {
	s.closed++
	if s.closed == 1 {
		close(s.notices)
	}
	return nil
}

// flakyChatter fails a fixed number of calls before replying.
type flakyChatter struct {
	mu       sync.Mutex
	failures int
	calls    int
	reply    string
}

func (c *flakyChatter) Chat(context.Context, string, []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.calls <= c.failures {
		return "", errors.New("model overloaded")
	}
	return c.reply, nil
}

// captureWriter records every persisted report.
type captureWriter struct {
	mu      sync.Mutex
	reports []*report.Report
}

func (w *captureWriter) Write(_ context.Context, r *report.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, r)
	return nil
}

const fakeVerdict = `{
	"summary": "Reasonable interview.",
	"gradingSummaryEvaluation": "Consistent.",
	"checks": [{"name": "stays_on_topic", "status": "PASS", "reasoning": "on topic"}]
}`

func newSupervisor(t *testing.T, service *fakeService, chatter llm.Chatter) (*Supervisor, *captureWriter) {
	t.Helper()

	provisioner := provision.New(service, nil)
	provisioner.Interval = time.Millisecond

	j, err := judge.New(chatter, "judge-model", nil)
	require.NoError(t, err)

	writer := &captureWriter{}
	s := NewSupervisor(service, provisioner, j, writer, nil)
	s.TestGroup = "mock-group"
	s.ConversationTimeout = time.Second
	return s, writer
}

func idealTask() Task {
	return Task{
		SkillID: "S1",
		Persona: &persona.ScriptedBuilder{ScriptName: "IDEAL_CANDIDATE", Replies: []string{"X is a design pattern for..."}},
	}
}

func TestRunTask_EndToEnd(t *testing.T) {
	service := newFakeService(0, "Tell me about X")
	s, writer := newSupervisor(t, service, &flakyChatter{reply: fakeVerdict})

	require.NoError(t, s.RunTask(t.Context(), idealTask()))

	// one assessment, one completion signal, one privileged grading poll
	assert.Equal(t, 1, service.orders)
	assert.Equal(t, 1, service.marked)
	assert.GreaterOrEqual(t, service.privilegedPolls, 1)

	// exactly one report, with a single-question transcript
	require.Len(t, writer.reports, 1)
	rep := writer.reports[0]
	assert.Equal(t, "IDEAL_CANDIDATE", rep.Persona)
	assert.Equal(t, "S1", rep.SkillID)
	require.Len(t, rep.Transcript, 2)
	assert.Equal(t, "Tell me about X", rep.Transcript[0].Text)
	assert.Equal(t, "Reasonable interview.", rep.Judge.Summary)

	// every subscription was released
	for _, sub := range service.subs {
		assert.Equal(t, 1, sub.closed)
	}
}

func TestRunTask_ProvisioningFailsTwiceThenSucceeds(t *testing.T) {
	service := newFakeService(2, "Tell me about X")
	s, writer := newSupervisor(t, service, &flakyChatter{reply: fakeVerdict})

	require.NoError(t, s.RunTask(t.Context(), idealTask()))

	// retry budget of 2: the order call ran exactly three times
	assert.Equal(t, 3, service.orders)
	assert.Len(t, writer.reports, 1)
}

func TestRunTask_RetriesExhausted(t *testing.T) {
	service := newFakeService(100)
	s, writer := newSupervisor(t, service, &flakyChatter{reply: fakeVerdict})

	err := s.RunTask(t.Context(), idealTask())
	require.Error(t, err)

	assert.Equal(t, 3, service.orders)
	assert.Empty(t, writer.reports)
}

func TestRunTask_MissingSecretKeyRetriesWithFreshAssessment(t *testing.T) {
	service := newFakeService(0, "Tell me about X")
	service.resultURL = "https://bot.example.com/results/%s"
	s, writer := newSupervisor(t, service, &flakyChatter{reply: fakeVerdict})

	err := s.RunTask(t.Context(), idealTask())
	require.ErrorIs(t, err, provision.ErrNoSecretKey)

	// each attempt re-provisioned before hitting the same malformed URL
	assert.Equal(t, 3, service.orders)
	assert.Empty(t, writer.reports)
}

func TestRunTask_JudgeRetriesIndependently(t *testing.T) {
	service := newFakeService(0, "Tell me about X")
	chatter := &flakyChatter{failures: 2, reply: fakeVerdict}
	s, writer := newSupervisor(t, service, chatter)

	require.NoError(t, s.RunTask(t.Context(), idealTask()))

	// the judge burned its own budget; the attempt itself never retried
	assert.Equal(t, 3, chatter.calls)
	assert.Equal(t, 1, service.orders)
	assert.Len(t, writer.reports, 1)
}

func TestRunTask_ConversationTimeout(t *testing.T) {
	service := newFakeService(0, "Tell me about X")
	service.silent = true // the bot never replies to the greeting

	s, _ := newSupervisor(t, service, &flakyChatter{reply: fakeVerdict})
	s.ConversationTimeout = 20 * time.Millisecond
	s.AttemptRetries = 0

	err := s.RunTask(t.Context(), idealTask())
	require.ErrorIs(t, err, ErrConversationTimeout)
}
