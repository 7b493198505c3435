// Package provision orders assessments against the interview-bot service
// and waits for the resulting session to reach the state an attempt needs
// next: ready to converse, or fully graded.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/evalops/botvet/internal/botclient"
)

const (
	defaultMaxAttempts  = 10
	defaultPollInterval = 2 * time.Second

	// secretKeyParam is the query parameter of the assessment result URL
	// that authenticates the privileged (graded) session view.
	secretKeyParam = "secret"
)

// ErrNotReadyInTime means the polled session never satisfied the awaited
// predicate within the attempt budget.
var ErrNotReadyInTime = errors.New("session did not reach the expected state in time")

// ErrNoSecretKey means the assessment result URL does not carry the secret
// key needed for the privileged session view. The assessment is unusable.
var ErrNoSecretKey = errors.New("assessment result URL has no secret key")

// Provisioner creates assessments and polls their sessions. Safe for
// concurrent use; each call operates on its own assessment.
type Provisioner struct {
	client botclient.Client
	log    *slog.Logger

	// MaxAttempts and Interval bound each poll loop. Both have sensible
	// defaults; tests shrink the interval.
	MaxAttempts int
	Interval    time.Duration
}

func New(client botclient.Client, log *slog.Logger) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{
		client:      client,
		log:         log,
		MaxAttempts: defaultMaxAttempts,
		Interval:    defaultPollInterval,
	}
}

// Provision orders a fresh assessment for the given test with a synthetic
// candidate. Every call generates a new idempotent order id and a unique
// candidate email, so each attempt gets its own assessment.
func (p *Provisioner) Provision(ctx context.Context, testID, testGroup string) (*botclient.Assessment, error) {
	orderID := uuid.NewString()

	req := botclient.OrderRequest{
		TestID:  testID,
		OrderID: orderID,
		Candidate: botclient.Candidate{
			FirstName: "Mock",
			LastName:  "Candidate",
			Email:     fmt.Sprintf("mock-candidate+%s@example.com", orderID),
			Country:   "US",
			TestGroup: testGroup,
		},
	}

	assessment, err := p.client.OrderAssessment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ordering assessment for test %s: %w", testID, err)
	}

	p.log.Info("assessment ordered", "test", testID, "assessment", assessment.ID)
	return assessment, nil
}

// WaitReady polls the candidate-authenticated session view until the
// session is ready for conversation.
func (p *Provisioner) WaitReady(ctx context.Context, sessionID string) (*botclient.SessionSnapshot, error) {
	snapshot, err := p.poll(ctx,
		func(ctx context.Context) (*botclient.SessionSnapshot, error) {
			return p.client.GetSession(ctx, sessionID, "")
		},
		func(s *botclient.SessionSnapshot) bool {
			return s.State == botclient.SessionReady
		})
	if err != nil {
		return nil, fmt.Errorf("waiting for session %s to become ready: %w", sessionID, err)
	}
	return snapshot, nil
}

// WaitGraded polls the privileged session view until the first question has
// a grading score. The secret key comes from SecretKey.
func (p *Provisioner) WaitGraded(ctx context.Context, sessionID, secretKey string) (*botclient.SessionSnapshot, error) {
	snapshot, err := p.poll(ctx,
		func(ctx context.Context) (*botclient.SessionSnapshot, error) {
			return p.client.GetSession(ctx, sessionID, secretKey)
		},
		func(s *botclient.SessionSnapshot) bool {
			if len(s.Questions) == 0 {
				return false
			}
			grading := s.Questions[0].CorrectnessGrading
			return grading != nil && grading.Score != nil
		})
	if err != nil {
		return nil, fmt.Errorf("waiting for session %s to be graded: %w", sessionID, err)
	}
	return snapshot, nil
}

// poll fetches the session up to MaxAttempts times, a fixed Interval apart,
// and returns the first snapshot satisfying pred. Fetch errors propagate
// immediately; the caller holds the retry authority.
func (p *Provisioner) poll(ctx context.Context,
	fetch func(context.Context) (*botclient.SessionSnapshot, error),
	pred func(*botclient.SessionSnapshot) bool,
) (*botclient.SessionSnapshot, error) {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		snapshot, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if pred(snapshot) {
			return snapshot, nil
		}

		p.log.Debug("session not in expected state yet",
			"session", snapshot.ID,
			"state", snapshot.State,
			"attempt", attempt)

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w after %d polls", ErrNotReadyInTime, p.MaxAttempts)
}

// SecretKey extracts the privileged-view key from the assessment's result
// URL. A result URL without the key is a provisioning failure.
func SecretKey(assessment *botclient.Assessment) (string, error) {
	parsed, err := url.Parse(assessment.ResultURL)
	if err != nil {
		return "", fmt.Errorf("parsing result URL for assessment %s: %w", assessment.ID, err)
	}

	key := parsed.Query().Get(secretKeyParam)
	if key == "" {
		return "", fmt.Errorf("assessment %s: %w", assessment.ID, ErrNoSecretKey)
	}
	return key, nil
}
