// Package evaluation runs (skill, persona) evaluation tasks: each task
// provisions its own assessment, drives the interview, waits for grading,
// judges the result and persists a report. The scheduler fans tasks out in
// fixed-size batches.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/conversation"
	"github.com/evalops/botvet/internal/judge"
	"github.com/evalops/botvet/internal/persona"
	"github.com/evalops/botvet/internal/provision"
	"github.com/evalops/botvet/internal/report"
	"github.com/evalops/botvet/internal/retrier"
)

const (
	defaultConversationTimeout = 10 * time.Minute
	defaultAttemptRetries      = 2
	defaultJudgeRetries        = 2
)

// ErrConversationTimeout means the conversation phase exceeded its
// wall-clock budget. The attempt is abandoned; the driver's own exit path
// still releases the subscription.
var ErrConversationTimeout = errors.New("conversation exceeded its time budget")

// Task is one (skill, persona) evaluation unit. The builder yields a fresh
// persona instance per attempt so no conversation history leaks between
// retries or repeats.
type Task struct {
	SkillID string
	Persona persona.Builder
}

// Supervisor owns the attempt pipeline. One Supervisor is shared by all
// concurrent tasks; per-attempt state (assessment, session, persona,
// subscription) is created inside each attempt and never shared.
type Supervisor struct {
	client      botclient.Client
	provisioner *provision.Provisioner
	judge       *judge.Judge
	writer      report.Writer
	log         *slog.Logger

	// TestGroup is attached to every ordered assessment's candidate.
	TestGroup string

	ConversationTimeout time.Duration
	AttemptRetries      int
	JudgeRetries        int
}

func NewSupervisor(client botclient.Client, provisioner *provision.Provisioner, j *judge.Judge, writer report.Writer, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		client:              client,
		provisioner:         provisioner,
		judge:               j,
		writer:              writer,
		log:                 log,
		ConversationTimeout: defaultConversationTimeout,
		AttemptRetries:      defaultAttemptRetries,
		JudgeRetries:        defaultJudgeRetries,
	}
}

// RunTask runs one evaluation task, retrying the whole attempt on any
// failure. Every retry starts from scratch with a new assessment; there is
// no resume from partial state.
func (s *Supervisor) RunTask(ctx context.Context, task Task) error {
	_, err := retrier.Do(ctx, s.AttemptRetries, func(ctx context.Context) (struct{}, error) {
		if err := s.runAttempt(ctx, task); err != nil {
			s.log.Warn("evaluation attempt failed",
				"skill", task.SkillID,
				"persona", task.Persona.PersonaName(),
				"error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

// runAttempt is the linear pipeline of one attempt: provision, wait ready,
// converse under a wall-clock timeout, wait graded, judge, persist.
func (s *Supervisor) runAttempt(ctx context.Context, task Task) error {
	assessment, err := s.provisioner.Provision(ctx, task.SkillID, s.TestGroup)
	if err != nil {
		return err
	}

	secretKey, err := provision.SecretKey(assessment)
	if err != nil {
		return err
	}

	// the assessment id doubles as the remote session id
	sessionID := assessment.ID

	s.log.Info("attempt started",
		"skill", task.SkillID,
		"persona", task.Persona.PersonaName(),
		"session", sessionID)

	session, err := s.provisioner.WaitReady(ctx, sessionID)
	if err != nil {
		return err
	}

	transcript, err := s.converse(ctx, task, session)
	if err != nil {
		return err
	}

	graded, err := s.provisioner.WaitGraded(ctx, sessionID, secretKey)
	if err != nil {
		return err
	}

	evaluation, err := retrier.Do(ctx, s.JudgeRetries, func(ctx context.Context) (*judge.Evaluation, error) {
		return s.judge.Evaluate(ctx, transcript, graded)
	})
	if err != nil {
		return fmt.Errorf("judging session %s: %w", sessionID, err)
	}

	rep := &report.Report{
		Persona:      task.Persona.PersonaName(),
		SkillID:      task.SkillID,
		Assessment:   assessment,
		FinalSession: graded,
		Transcript:   transcript,
		Judge:        evaluation,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.writer.Write(ctx, rep); err != nil {
		return fmt.Errorf("persisting report for session %s: %w", sessionID, err)
	}

	s.log.Info("attempt succeeded", "skill", task.SkillID, "persona", task.Persona.PersonaName(), "session", sessionID)
	return nil
}

// converse races the conversation driver against the wall-clock budget.
// On timeout the driver goroutine is abandoned, not interrupted; its own
// deferred cleanup closes the subscription whenever it finishes.
func (s *Supervisor) converse(ctx context.Context, task Task, session *botclient.SessionSnapshot) ([]conversation.Turn, error) {
	type outcome struct {
		transcript []conversation.Turn
		err        error
	}

	driver := conversation.NewDriver(s.client, task.Persona.Build(), s.log)

	done := make(chan outcome, 1)
	go func() {
		transcript, err := driver.Run(ctx, session)
		done <- outcome{transcript, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("conversation for session %s: %w", session.ID, out.err)
		}
		return out.transcript, nil
	case <-time.After(s.ConversationTimeout):
		return nil, fmt.Errorf("session %s: %w", session.ID, ErrConversationTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
