package webapp

import (
	"net/http"
	"sync"
	"time"

	"pdf-quiz/internal/hooks"
	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/session"
	"pdf-quiz/internal/state"
)

// RemoteAPI is the quiz generation and grading service the app talks to.
type RemoteAPI interface {
	hooks.Uploader
	hooks.AnswerChecker
	hooks.FeedbackStreamer
}

type API struct {
	remote   RemoteAPI
	sessions *state.Manager
	cookies  session.Cookies
	debounce time.Duration
	log      *logger.Logger

	mu        sync.Mutex
	feedbacks map[string]*hooks.Feedback
}

func NewAPI(remote RemoteAPI, sessions *state.Manager, cookies session.Cookies, debounce time.Duration, log *logger.Logger) *API {
	if sessions == nil {
		sessions = state.NewManager(nil, nil, log)
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &API{
		remote:    remote,
		sessions:  sessions,
		cookies:   cookies,
		debounce:  debounce,
		log:       log,
		feedbacks: make(map[string]*hooks.Feedback),
	}
	sessions.OnEvict(a.resetFeedback)
	return a
}

// session resolves the caller's session, issuing a cookie on first visit.
func (a *API) session(w http.ResponseWriter, r *http.Request) (string, *quiz.Store) {
	sessionID := a.cookies.Ensure(w, r)
	return sessionID, a.sessions.Get(r.Context(), sessionID)
}

// feedback returns the per-session stream owner so a new question always
// closes the previous question's stream.
func (a *API) feedback(sessionID string, store *quiz.Store) *hooks.Feedback {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.feedbacks[sessionID]; ok {
		return existing
	}
	feedback := hooks.NewFeedback(a.remote, store, sessionID, a.debounce, a.log.With("session_id", sessionID))
	a.feedbacks[sessionID] = feedback
	return feedback
}

func (a *API) resetFeedback(sessionID string) {
	a.mu.Lock()
	feedback, ok := a.feedbacks[sessionID]
	delete(a.feedbacks, sessionID)
	a.mu.Unlock()
	if ok {
		feedback.Reset()
	}
}
