// Package navigation derives page routes from the quiz step and decides
// redirects for direct URL visits (refresh, deep link, back button).
//
// Routes are a pure function of one store view, so there is never a second
// writer racing the store for the step.
package navigation

import (
	"strconv"
	"strings"

	"pdf-quiz/internal/quiz"
)

const (
	UploadPath  = "/upload"
	ReviewPath  = "/review"
	QuizPath    = "/quiz"
	ResultsPath = "/results"
)

func QuestionPath(number int) string {
	return QuizPath + "/" + strconv.Itoa(number)
}

// RouteForStep is where the browser should be for step. index is the
// zero-based current question index.
func RouteForStep(step quiz.Step, index int) string {
	switch step {
	case quiz.StepEdit, quiz.StepPreparing:
		return ReviewPath
	case quiz.StepQuiz:
		if index < 0 {
			index = 0
		}
		return QuestionPath(index + 1)
	case quiz.StepResults:
		return ResultsPath
	default:
		return UploadPath
	}
}

// Decision is the outcome of resolving a requested path.
type Decision struct {
	// Redirect is empty when the requested page can be shown as is.
	Redirect string
	// QuestionIndex is set for /quiz/{n} pages that render: the zero-based
	// index the store should move to.
	QuestionIndex int
	HasIndex      bool
}

func (d Decision) Stay() bool { return d.Redirect == "" }

// Resolve applies the per-route guards to a requested path.
func Resolve(path string, view quiz.View) Decision {
	path = normalize(path)
	questions := view.QuestionCount()

	switch {
	case path == UploadPath:
		if view.Step == quiz.StepEdit && questions > 0 {
			return Decision{Redirect: ReviewPath}
		}
		return Decision{}

	case path == ReviewPath:
		if view.Step == quiz.StepQuiz {
			return Decision{Redirect: QuestionPath(1)}
		}
		if questions == 0 && view.Step != quiz.StepGenerating {
			return Decision{Redirect: UploadPath}
		}
		return Decision{}

	case path == QuizPath:
		if questions == 0 {
			return Decision{Redirect: UploadPath}
		}
		switch view.Step {
		case quiz.StepQuiz:
			return Decision{Redirect: RouteForStep(quiz.StepQuiz, clamp(view.CurrentQuestionIndex, questions))}
		case quiz.StepResults:
			return Decision{Redirect: ResultsPath}
		}
		return Decision{}

	case strings.HasPrefix(path, QuizPath+"/"):
		if questions == 0 {
			return Decision{Redirect: UploadPath}
		}
		number, err := strconv.Atoi(strings.TrimPrefix(path, QuizPath+"/"))
		if err != nil || number < 1 || number > questions {
			return Decision{Redirect: QuestionPath(1)}
		}
		if view.Step == quiz.StepResults {
			return Decision{Redirect: ResultsPath}
		}
		return Decision{QuestionIndex: number - 1, HasIndex: true}

	case path == ResultsPath:
		if questions == 0 || view.AnswerCount() == 0 {
			return Decision{Redirect: UploadPath}
		}
		return Decision{}
	}

	return Decision{Redirect: RouteForStep(view.Step, view.CurrentQuestionIndex)}
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// clamp keeps a completed quiz (index == count) pointing at its last question.
func clamp(index, count int) int {
	if index >= count {
		return count - 1
	}
	if index < 0 {
		return 0
	}
	return index
}
