package quiz

import (
	"context"
	"sync"
	"time"

	"pdf-quiz/internal/logger"
)

const defaultSyncTimeout = 5 * time.Second

// QuestionSyncer pushes an edited question to the remote service.
type QuestionSyncer interface {
	SyncQuestion(ctx context.Context, question Question) error
}

type Option func(*Store)

func WithLogger(log *logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithSyncer(syncer QuestionSyncer, timeout time.Duration) Option {
	return func(s *Store) {
		s.syncer = syncer
		if timeout > 0 {
			s.syncTimeout = timeout
		}
	}
}

// Store owns one quiz session. All mutations are serialized by mu; the only
// background work is the best-effort question sync started by UpdateQuestion.
type Store struct {
	// notifyMu is taken before mu and held until subscribers return, so
	// snapshots reach subscribers in mutation order.
	notifyMu sync.Mutex
	mu       sync.Mutex

	snap         Snapshot
	showFeedback bool
	loading      bool
	errMsg       string

	log         *logger.Logger
	syncer      QuestionSyncer
	syncTimeout time.Duration
	syncs       sync.WaitGroup

	subscribers map[int]func(Snapshot)
	nextSubID   int
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		snap:        emptySnapshot(),
		log:         logger.Nop(),
		syncTimeout: defaultSyncTimeout,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive the persisted snapshot after every
// mutation, in mutation order. fn may read the store but must not mutate it.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// mutate runs fn under the lock and notifies subscribers when fn reports a change.
func (s *Store) mutate(fn func() bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	snap := s.snap.clone()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Snapshot:     s.snap.clone(),
		ShowFeedback: s.showFeedback,
		Loading:      s.loading,
		Error:        s.errMsg,
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Restore replaces the session with a persisted snapshot, repairing anything
// that would break the store's invariants.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := emptySnapshot()
	restored.Title = snap.Title
	restored.UserName = snap.UserName
	for _, q := range snap.Questions {
		restored.Questions = append(restored.Questions, q.clone())
	}
	for id, q := range snap.EditedQuestions {
		restored.EditedQuestions[id] = q.clone()
	}
	for id, answer := range snap.UserAnswers {
		restored.UserAnswers[id] = answer
	}
	seen := make(map[string]struct{}, len(snap.Answers))
	for _, answer := range snap.Answers {
		if _, dup := seen[answer.QuestionID]; dup {
			continue
		}
		seen[answer.QuestionID] = struct{}{}
		restored.Answers = append(restored.Answers, answer)
	}
	restored.CurrentQuestionIndex = clampIndex(snap.CurrentQuestionIndex, len(restored.Questions))

	s.snap = restored
	s.showFeedback = false
	s.loading = false
	s.errMsg = ""
	if step, ok := ParseStep(string(snap.Step)); ok {
		s.setStepLocked(step)
	}
}

func (s *Store) SetStep(step Step) {
	s.mutate(func() bool {
		before := s.snap.Step
		s.setStepLocked(step)
		return before != s.snap.Step
	})
}

func (s *Store) setStepLocked(step Step) {
	if !s.canNavigateLocked(step) {
		s.log.Warn("refusing step transition, falling back to upload",
			"requested_step", string(step),
			"questions", len(s.snap.Questions),
			"answers", len(s.snap.Answers),
		)
		step = StepUpload
	}
	s.snap.Step = step
}

// SetQuiz is the only way new questions enter the session.
func (s *Store) SetQuiz(title string, questions []Question) {
	s.mutate(func() bool {
		s.snap.Title = title
		s.snap.Questions = make([]Question, 0, len(questions))
		for _, q := range questions {
			s.snap.Questions = append(s.snap.Questions, q.clone())
		}
		s.snap.EditedQuestions = map[string]Question{}
		s.snap.UserAnswers = map[string]string{}
		s.snap.Answers = []AnswerRecord{}
		s.snap.CurrentQuestionIndex = 0
		s.showFeedback = false
		return true
	})
}

// UpdateQuestion writes the edit overlay immediately and then tries to sync it
// to the remote service in the background. A failed sync is only logged: the
// local overlay stays authoritative for the session.
func (s *Store) UpdateQuestion(id string, patch QuestionPatch) (Question, bool) {
	var (
		updated Question
		found   bool
	)
	s.mutate(func() bool {
		base, ok := s.effectiveByIDLocked(id)
		if !ok {
			return false
		}
		updated = patch.apply(base)
		updated.ID = id
		s.snap.EditedQuestions[id] = updated
		found = true
		return true
	})
	if !found {
		s.log.Warn("update for unknown question ignored", "question_id", id)
		return Question{}, false
	}

	if s.syncer != nil {
		s.syncs.Add(1)
		go s.syncQuestion(updated.clone())
	}
	return updated, true
}

func (s *Store) syncQuestion(question Question) {
	defer s.syncs.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()
	if err := s.syncer.SyncQuestion(ctx, question); err != nil {
		s.log.Warn("question sync failed, keeping local edit", "question_id", question.ID, "error", err)
	}
}

// WaitForSync blocks until background question syncs have finished.
func (s *Store) WaitForSync() {
	s.syncs.Wait()
}

func (s *Store) SetUserAnswer(questionID, answer string) {
	s.mutate(func() bool {
		if s.snap.UserAnswers[questionID] == answer {
			return false
		}
		s.snap.UserAnswers[questionID] = answer
		return true
	})
}

func (s *Store) UserAnswer(questionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.UserAnswers[questionID]
}

// SubmitAnswer records the graded outcome and shows feedback. It never moves
// the index; NextQuestion does.
func (s *Store) SubmitAnswer(questionID, userAnswer string, result GradingResult) bool {
	accepted := false
	s.mutate(func() bool {
		if _, ok := s.effectiveByIDLocked(questionID); !ok {
			s.log.Warn("answer for unknown question ignored", "question_id", questionID)
			return false
		}
		for _, existing := range s.snap.Answers {
			if existing.QuestionID == questionID {
				s.log.Warn("question already answered", "question_id", questionID)
				return false
			}
		}
		s.snap.Answers = append(s.snap.Answers, AnswerRecord{
			QuestionID:    questionID,
			UserAnswer:    userAnswer,
			IsCorrect:     result.Correct,
			CorrectAnswer: result.CorrectAnswer,
			Explanation:   result.Explanation,
		})
		s.showFeedback = true
		accepted = true
		return true
	})
	return accepted
}

func (s *Store) NextQuestion() {
	s.mutate(func() bool {
		next := s.snap.CurrentQuestionIndex + 1
		if next > len(s.snap.Questions) {
			next = len(s.snap.Questions)
		}
		s.snap.CurrentQuestionIndex = next
		s.showFeedback = false
		if next >= len(s.snap.Questions) {
			s.setStepLocked(StepResults)
		} else {
			s.setStepLocked(StepQuiz)
		}
		return true
	})
}

// StartQuiz begins a fresh attempt over the current (possibly edited) questions.
func (s *Store) StartQuiz() {
	s.mutate(func() bool {
		s.snap.CurrentQuestionIndex = 0
		s.snap.Answers = []AnswerRecord{}
		s.snap.UserAnswers = map[string]string{}
		s.showFeedback = false
		s.setStepLocked(StepQuiz)
		return true
	})
}

func (s *Store) SetCurrentQuestionIndex(index int) {
	s.mutate(func() bool {
		index = clampIndex(index, len(s.snap.Questions))
		if index == s.snap.CurrentQuestionIndex {
			return false
		}
		s.snap.CurrentQuestionIndex = index
		return true
	})
}

func (s *Store) SetUserName(name string) {
	s.mutate(func() bool {
		s.snap.UserName = name
		return true
	})
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *Store) SetError(message string) {
	s.mu.Lock()
	s.errMsg = message
	s.mu.Unlock()
}

func (s *Store) ClearError() {
	s.SetError("")
}

func (s *Store) ResetQuiz() {
	s.mutate(func() bool {
		s.snap = emptySnapshot()
		s.showFeedback = false
		s.loading = false
		s.errMsg = ""
		return true
	})
}

func (s *Store) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveAtLocked(s.snap.CurrentQuestionIndex)
}

// EffectiveQuestion looks a question up by id, preferring its overlay.
func (s *Store) EffectiveQuestion(id string) (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveByIDLocked(id)
}

// EffectiveQuestions returns every question as the user currently sees it.
func (s *Store) EffectiveQuestions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, 0, len(s.snap.Questions))
	for idx := range s.snap.Questions {
		q, _ := s.effectiveAtLocked(idx)
		out = append(out, q)
	}
	return out
}

func (s *Store) IsQuizComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.CurrentQuestionIndex >= len(s.snap.Questions)
}

func (s *Store) CanNavigateToStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canNavigateLocked(step)
}

func (s *Store) canNavigateLocked(step Step) bool {
	hasQuestions := len(s.snap.Questions) > 0
	switch step {
	case StepEdit, StepQuiz:
		return hasQuestions
	case StepResults:
		return hasQuestions && len(s.snap.Answers) > 0
	default:
		return true
	}
}

func (s *Store) effectiveAtLocked(index int) (Question, bool) {
	if index < 0 || index >= len(s.snap.Questions) {
		return Question{}, false
	}
	original := s.snap.Questions[index]
	if edited, ok := s.snap.EditedQuestions[original.ID]; ok {
		return edited.clone(), true
	}
	return original.clone(), true
}

func (s *Store) effectiveByIDLocked(id string) (Question, bool) {
	for idx, q := range s.snap.Questions {
		if q.ID == id {
			return s.effectiveAtLocked(idx)
		}
	}
	return Question{}, false
}

func clampIndex(index, count int) int {
	if index < 0 {
		return 0
	}
	if index > count {
		return count
	}
	return index
}
