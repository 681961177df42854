package quiz

import (
	"strings"
)

type Step string

const (
	StepUpload     Step = "upload"
	StepGenerating Step = "generating"
	StepEdit       Step = "edit"
	StepPreparing  Step = "preparing"
	StepQuiz       Step = "quiz"
	StepResults    Step = "results"
)

var steps = []Step{StepUpload, StepGenerating, StepEdit, StepPreparing, StepQuiz, StepResults}

func ParseStep(value string) (Step, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, step := range steps {
		if string(step) == value {
			return step, true
		}
	}
	return "", false
}

type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Options  []string `json:"options,omitempty"`
}

func (q Question) clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

// QuestionPatch carries an edit from the review screen. Nil fields keep the
// current value.
type QuestionPatch struct {
	Question *string
	Answer   *string
	Options  []string
}

func (p QuestionPatch) apply(base Question) Question {
	out := base.clone()
	if p.Question != nil {
		out.Question = *p.Question
	}
	if p.Answer != nil {
		out.Answer = *p.Answer
	}
	if p.Options != nil {
		out.Options = append([]string(nil), p.Options...)
	}
	return out
}

// GradingResult is what the grading service says about one submitted answer.
type GradingResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

type AnswerRecord struct {
	QuestionID    string `json:"question_id"`
	UserAnswer    string `json:"user_answer"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// Snapshot is the persisted part of a quiz session. Loading and error flags
// are deliberately absent.
type Snapshot struct {
	Step                 Step                `json:"current_step"`
	Title                string              `json:"quiz_title"`
	Questions            []Question          `json:"questions"`
	EditedQuestions      map[string]Question `json:"edited_questions"`
	CurrentQuestionIndex int                 `json:"current_question_index"`
	Answers              []AnswerRecord      `json:"answers"`
	UserAnswers          map[string]string   `json:"user_answers"`
	UserName             string              `json:"user_name"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Questions = make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		out.Questions = append(out.Questions, q.clone())
	}
	out.EditedQuestions = make(map[string]Question, len(s.EditedQuestions))
	for id, q := range s.EditedQuestions {
		out.EditedQuestions[id] = q.clone()
	}
	out.Answers = append(make([]AnswerRecord, 0, len(s.Answers)), s.Answers...)
	out.UserAnswers = make(map[string]string, len(s.UserAnswers))
	for id, answer := range s.UserAnswers {
		out.UserAnswers[id] = answer
	}
	return out
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Step:            StepUpload,
		Questions:       []Question{},
		EditedQuestions: map[string]Question{},
		Answers:         []AnswerRecord{},
		UserAnswers:     map[string]string{},
	}
}

// View is a read-only copy of everything a screen needs to render.
type View struct {
	Snapshot
	ShowFeedback bool   `json:"show_feedback"`
	Loading      bool   `json:"loading"`
	Error        string `json:"error,omitempty"`
}

func (v View) QuestionCount() int { return len(v.Questions) }

func (v View) AnswerCount() int { return len(v.Answers) }

// Effective returns the overlay for the question at index, or the original.
func (v View) Effective(index int) (Question, bool) {
	if index < 0 || index >= len(v.Questions) {
		return Question{}, false
	}
	original := v.Questions[index]
	if edited, ok := v.EditedQuestions[original.ID]; ok {
		return edited, true
	}
	return original, true
}

func (v View) AnswerFor(questionID string) (AnswerRecord, bool) {
	for _, answer := range v.Answers {
		if answer.QuestionID == questionID {
			return answer, true
		}
	}
	return AnswerRecord{}, false
}
