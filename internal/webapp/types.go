package webapp

import (
	"pdf-quiz/internal/navigation"
	"pdf-quiz/internal/quiz"
)

type stateResponse struct {
	quiz.View
	Route           string         `json:"route"`
	Score           quiz.Score     `json:"score"`
	ScoreMessage    string         `json:"score_message,omitempty"`
	CurrentQuestion *quiz.Question `json:"current_question,omitempty"`
	IsQuizComplete  bool           `json:"is_quiz_complete"`
}

type pageResponse struct {
	Page  string        `json:"page"`
	State stateResponse `json:"state"`
}

type questionPatchRequest struct {
	Question *string  `json:"question"`
	Answer   *string  `json:"answer"`
	Options  []string `json:"options"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type submitResponse struct {
	Result quiz.GradingResult `json:"result"`
	State  stateResponse      `json:"state"`
}

type userNameRequest struct {
	Name string `json:"name"`
}

type restartResponse struct {
	Redirect string `json:"redirect"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toStateResponse(view quiz.View) stateResponse {
	score := quiz.ScoreOf(view.Answers)
	response := stateResponse{
		View:           view,
		Route:          navigation.RouteForStep(view.Step, view.CurrentQuestionIndex),
		Score:          score,
		IsQuizComplete: view.CurrentQuestionIndex >= view.QuestionCount(),
	}
	if score.Total > 0 {
		response.ScoreMessage = score.Message()
	}
	if current, ok := view.Effective(view.CurrentQuestionIndex); ok {
		response.CurrentQuestion = &current
	}
	return response
}
