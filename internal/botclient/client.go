package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
)

//go:generate go tool mockgen -source=client.go -destination=mock_client.go -package=botclient

// Client is the narrow surface of the remote interview-bot service. All
// methods are network calls and may fail with a transport or server error,
// propagated to the caller unmodified apart from message normalization.
// Implementations must be safe for concurrent use.
type Client interface {
	// OrderAssessment provisions a new mock assessment.
	OrderAssessment(ctx context.Context, req OrderRequest) (*Assessment, error)

	// GetSession fetches a session snapshot. An empty secretKey returns the
	// candidate-authenticated view; a non-empty one returns the privileged
	// view that exposes grading fields.
	GetSession(ctx context.Context, sessionID, secretKey string) (*SessionSnapshot, error)

	// AttemptAnswer submits one answer for a question. The remote bot
	// processes the turn and asynchronously publishes an AnswerAttemptEvent.
	AttemptAnswer(ctx context.Context, sessionID, questionID, answer string) error

	// MarkSessionCompleted signals that the local conversation loop has
	// naturally ended.
	MarkSessionCompleted(ctx context.Context, sessionID string) error

	// SubscribeAnswerAttempts opens a long-lived push stream of
	// answerAttempted events for one (session, question) pair. The caller
	// must Close the subscription to release the transport.
	SubscribeAnswerAttempts(ctx context.Context, sessionID, questionID string) (Subscription, error)
}

// Subscription is a live answerAttempted event stream.
type Subscription interface {
	// Events is closed after the stream completes or a notice with Err set
	// has been delivered.
	Events() <-chan AttemptNotice

	// Close cancels the stream. Safe to call multiple times and after the
	// stream has already ended.
	Close() error
}

// Options configures an HTTPClient.
type Options struct {
	// RestURL is the base URL for the assessment ordering REST endpoint.
	RestURL string
	// GraphQLURL is the HTTP endpoint for queries and mutations.
	GraphQLURL string
	// WebsocketURL is the graphql-transport-ws endpoint for subscriptions.
	WebsocketURL string
	// Token authenticates every call.
	Token string
	// CallTimeout bounds a single HTTP round trip. Zero means 30s.
	CallTimeout time.Duration
}

// HTTPClient talks to the real interview-bot service: REST for ordering,
// GraphQL over HTTP for queries/mutations, graphql-transport-ws for
// subscriptions. One HTTPClient is shared by all concurrent evaluation
// tasks; every call is stateless.
type HTTPClient struct {
	opts Options
	hc   *httpclient.Client
}

var _ Client = (*HTTPClient)(nil)

// New creates an HTTPClient. The underlying transport retries transient
// failures with a short constant backoff; anything that survives the
// retrier is the caller's problem.
func New(opts Options) *HTTPClient {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(2),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(250*time.Millisecond, 100*time.Millisecond))),
	)

	return &HTTPClient{opts: opts, hc: hc}
}

// OrderAssessment implements [Client].
func (c *HTTPClient) OrderAssessment(ctx context.Context, req OrderRequest) (*Assessment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.RestURL+"/assessment/order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ordering assessment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ordering assessment: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var assessment Assessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return nil, fmt.Errorf("decoding order response: %w", err)
	}

	return &assessment, nil
}

const getSessionQuery = `query GetSession($sessionId: ID!, $secretKey: String) {
  getSessionById(sessionId: $sessionId, secretKey: $secretKey) {
    id
    state
    questions {
      id
      conversation { role content }
      correctnessGrading { score feedback }
    }
  }
}`

// GetSession implements [Client].
func (c *HTTPClient) GetSession(ctx context.Context, sessionID, secretKey string) (*SessionSnapshot, error) {
	vars := map[string]any{"sessionId": sessionID}
	if secretKey != "" {
		vars["secretKey"] = secretKey
	}

	var payload struct {
		GetSessionByID *SessionSnapshot `json:"getSessionById"`
	}
	if err := c.query(ctx, getSessionQuery, vars, &payload); err != nil {
		return nil, fmt.Errorf("fetching session %s: %w", sessionID, err)
	}
	if payload.GetSessionByID == nil {
		return nil, fmt.Errorf("fetching session %s: not found", sessionID)
	}

	return payload.GetSessionByID, nil
}

const attemptAnswerMutation = `mutation AttemptAnswer($sessionId: ID!, $questionId: ID!, $answer: String!) {
  attemptAnswer(sessionId: $sessionId, questionId: $questionId, answer: $answer) {
    error
  }
}`

// AttemptAnswer implements [Client].
func (c *HTTPClient) AttemptAnswer(ctx context.Context, sessionID, questionID, answer string) error {
	var payload struct {
		AttemptAnswer struct {
			Error string `json:"error"`
		} `json:"attemptAnswer"`
	}

	vars := map[string]any{
		"sessionId":  sessionID,
		"questionId": questionID,
		"answer":     answer,
	}
	if err := c.query(ctx, attemptAnswerMutation, vars, &payload); err != nil {
		return fmt.Errorf("submitting answer: %w", err)
	}
	if payload.AttemptAnswer.Error != "" {
		return fmt.Errorf("submitting answer: %s", payload.AttemptAnswer.Error)
	}

	return nil
}

const markCompletedMutation = `mutation MarkCompleted($sessionId: ID!) {
  markSessionAsCompleted(sessionId: $sessionId) { id }
}`

// MarkSessionCompleted implements [Client].
func (c *HTTPClient) MarkSessionCompleted(ctx context.Context, sessionID string) error {
	var payload json.RawMessage
	if err := c.query(ctx, markCompletedMutation, map[string]any{"sessionId": sessionID}, &payload); err != nil {
		return fmt.Errorf("marking session %s completed: %w", sessionID, err)
	}
	return nil
}

type graphqlError struct {
	Message string `json:"message"`
}

// query posts one GraphQL operation and decodes data into out. A non-empty
// errors array is normalized into a single Go error.
func (c *HTTPClient) query(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return fmt.Errorf("encoding graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql: %s", joinGraphQLErrors(envelope.Errors))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding graphql data: %w", err)
		}
	}

	return nil
}

func joinGraphQLErrors(errs []graphqlError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
