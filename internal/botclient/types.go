package botclient

// SessionState is the remote session lifecycle state as reported by the
// interview-bot service.
type SessionState string

const (
	SessionInitializing SessionState = "INITIALIZING"
	SessionReady        SessionState = "READY"
	SessionStarted      SessionState = "STARTED"
	SessionCompleted    SessionState = "COMPLETED"
	SessionGraded       SessionState = "GRADED"
)

// AttemptState is the state field of an answerAttempted event. The service
// only ever publishes a terminal value; everything else arrives as a result.
type AttemptState string

const AttemptCompleted AttemptState = "COMPLETED"

// Candidate is the synthetic candidate attached to an assessment order.
type Candidate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Country   string `json:"country"`
	TestGroup string `json:"test_group"`
}

// OrderRequest is the body for POST /assessment/order.
type OrderRequest struct {
	TestID    string    `json:"test_id"`
	OrderID   string    `json:"order_id"`
	Candidate Candidate `json:"candidate"`
}

// Assessment identifies a provisioned assessment. ResultURL carries the
// secret key (as a query parameter) needed for the privileged session view.
type Assessment struct {
	ID        string `json:"assessment_id"`
	URL       string `json:"assessment_url"`
	ResultURL string `json:"assessment_result_url"`
}

// CorrectnessGrading is the per-question grading block, present only once
// the remote grader has finished.
type CorrectnessGrading struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// RemoteMessage is one entry of a question's remote conversation log.
type RemoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Question is a single interview question inside a session snapshot.
type Question struct {
	ID                 string              `json:"id"`
	Conversation       []RemoteMessage     `json:"conversation"`
	CorrectnessGrading *CorrectnessGrading `json:"correctnessGrading"`
}

// SessionSnapshot is a point-in-time read of remote session state. It is
// always replaced wholesale, never mutated locally.
type SessionSnapshot struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	Questions []Question   `json:"questions"`
}

// AnswerAttemptEvent is a single answerAttempted push notification. The
// service delivers at-least-once: the same logical turn may arrive several
// times, and results may be stale relative to what the consumer already saw.
type AnswerAttemptEvent struct {
	SessionID   string       `json:"sessionId"`
	QuestionID  string       `json:"questionId"`
	Result      string       `json:"result"`
	Attempts    int          `json:"attempts"`
	State       AttemptState `json:"state"`
	ValidAnswer *bool        `json:"validAnswer"`
	ErrorMsg    string       `json:"error"`
}

// AttemptNotice pairs an event with a transport error. A notice with Err set
// means the raw stream failed; no further notices follow it.
type AttemptNotice struct {
	Event AnswerAttemptEvent
	Err   error
}
