package hooks

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
)

const DefaultFeedbackDebounce = 50 * time.Millisecond

type FeedbackStreamer interface {
	StreamFeedback(ctx context.Context, sessionID string, request quizapi.CheckAnswerRequest) (io.ReadCloser, error)
}

// Feedback streams the explanation for a wrong answer. At most one
// subscription is live at a time; starting a new one closes the previous.
type Feedback struct {
	api       FeedbackStreamer
	store     *quiz.Store
	sessionID string
	debounce  time.Duration
	log       *logger.Logger

	mu      sync.Mutex
	current *Subscription
}

func NewFeedback(api FeedbackStreamer, store *quiz.Store, sessionID string, debounce time.Duration, log *logger.Logger) *Feedback {
	if debounce <= 0 {
		debounce = DefaultFeedbackDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Feedback{api: api, store: store, sessionID: sessionID, debounce: debounce, log: log}
}

func (f *Feedback) Start(ctx context.Context, questionID, userAnswer string) *Subscription {
	request := quizapi.CheckAnswerRequest{
		QuestionID: questionID,
		UserAnswer: userAnswer,
		Questions:  f.store.EffectiveQuestions(),
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel:    cancel,
		debounce:  f.debounce,
		streaming: true,
		updates:   make(chan string, 1),
		done:      make(chan struct{}),
	}

	f.mu.Lock()
	previous := f.current
	f.current = sub
	f.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	go sub.run(ctx, f.api, f.sessionID, request, f.log.With("question_id", questionID))
	return sub
}

// Reset closes the live subscription, if any, so the next question starts clean.
func (f *Feedback) Reset() {
	f.mu.Lock()
	previous := f.current
	f.current = nil
	f.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
}

// Subscription is one running feedback stream. Updates delivers the
// accumulated text, at most once per debounce window, and is closed when the
// stream ends or the subscription is closed.
type Subscription struct {
	cancel   context.CancelFunc
	debounce time.Duration

	mu        sync.Mutex
	text      string
	streaming bool
	err       error
	closed    bool
	timer     *time.Timer
	updates   chan string
	done      chan struct{}
}

func (s *Subscription) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Subscription) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) Updates() <-chan string { return s.updates }

func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the stream and waits for the reader to exit. No update is
// delivered after Close returns.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	<-s.done
}

func (s *Subscription) run(ctx context.Context, api FeedbackStreamer, sessionID string, request quizapi.CheckAnswerRequest, log *logger.Logger) {
	defer s.finish()
	defer s.cancel()

	body, err := api.StreamFeedback(ctx, sessionID, request)
	if err != nil {
		s.fail(err, log)
		return
	}
	defer body.Close()

	err = quizapi.ReadEvents(body, func(data string) error {
		s.append(data)
		return nil
	})
	if err != nil {
		s.fail(err, log)
	}
}

func (s *Subscription) append(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	next := appendChunk(s.text, chunk)
	if next == s.text {
		return
	}
	s.text = next
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flush)
	} else {
		s.timer.Reset(s.debounce)
	}
}

func (s *Subscription) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked()
}

// publishLocked keeps only the latest text in the buffered channel.
func (s *Subscription) publishLocked() {
	if s.closed {
		return
	}
	select {
	case s.updates <- s.text:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- s.text
	}
}

func (s *Subscription) fail(err error, log *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || errors.Is(err, context.Canceled) {
		return
	}
	log.Warn("feedback stream failed", "error", err)
	s.err = err
}

func (s *Subscription) finish() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.text != "" {
		s.publishLocked()
	}
	s.streaming = false
	s.closed = true
	close(s.updates)
	s.mu.Unlock()
	close(s.done)
}

// appendChunk joins a streamed chunk onto text, collapsing whitespace and
// keeping a single space between words.
func appendChunk(text, chunk string) string {
	chunk = strings.Join(strings.Fields(chunk), " ")
	if chunk == "" {
		return text
	}
	if text == "" {
		return chunk
	}
	if strings.ContainsRune(".,;:!?)", rune(chunk[0])) {
		return text + chunk
	}
	return text + " " + chunk
}
