package hooks

import (
	"context"
	"errors"

	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
)

// ErrAlreadyAnswered means another submission for the question was recorded first.
var ErrAlreadyAnswered = errors.New("question already answered")

type AnswerChecker interface {
	CheckAnswer(ctx context.Context, sessionID string, request quizapi.CheckAnswerRequest) (quiz.GradingResult, error)
}

type AnswerCheck struct {
	api       AnswerChecker
	store     *quiz.Store
	sessionID string
	log       *logger.Logger
}

func NewAnswerCheck(api AnswerChecker, store *quiz.Store, sessionID string, log *logger.Logger) *AnswerCheck {
	if log == nil {
		log = logger.Nop()
	}
	return &AnswerCheck{api: api, store: store, sessionID: sessionID, log: log}
}

// Run grades userAnswer remotely and records the outcome. The grading endpoint
// is stateless, so the full (edited) question list goes with every request.
func (a *AnswerCheck) Run(ctx context.Context, questionID, userAnswer string) (quiz.GradingResult, error) {
	a.store.ClearError()
	a.store.SetUserAnswer(questionID, userAnswer)
	a.store.SetLoading(true)
	defer a.store.SetLoading(false)

	result, err := a.api.CheckAnswer(ctx, a.sessionID, quizapi.CheckAnswerRequest{
		QuestionID: questionID,
		UserAnswer: userAnswer,
		Questions:  a.store.EffectiveQuestions(),
	})
	if err != nil {
		message := checkMessage(err)
		a.log.Error("answer check failed", "question_id", questionID, "error", err)
		a.store.SetError(message)
		return quiz.GradingResult{}, &Failure{Message: message, Cause: err}
	}

	if !a.store.SubmitAnswer(questionID, userAnswer, result) {
		return quiz.GradingResult{}, &Failure{Message: msgCheckDuplicate, Cause: ErrAlreadyAnswered}
	}
	return result, nil
}
