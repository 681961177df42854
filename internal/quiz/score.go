package quiz

import (
	"fmt"
	"math"
	"strings"
)

type Score struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func ScoreOf(answers []AnswerRecord) Score {
	score := Score{Total: len(answers)}
	for _, answer := range answers {
		if answer.IsCorrect {
			score.Correct++
		}
	}
	if score.Total > 0 {
		score.Percentage = int(math.Round(float64(score.Correct) / float64(score.Total) * 100))
	}
	return score
}

func (s *Store) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScoreOf(s.snap.Answers)
}

func (s Score) Message() string {
	switch {
	case s.Percentage >= 90:
		return "Excellent work!"
	case s.Percentage >= 80:
		return "Great job!"
	case s.Percentage >= 70:
		return "Good effort!"
	case s.Percentage >= 60:
		return "Not bad, but you can do better!"
	default:
		return "Keep studying and try again!"
	}
}

// ResultsText renders the shareable plain-text breakdown of a finished quiz.
func ResultsText(view View) string {
	score := ScoreOf(view.Answers)

	var b strings.Builder
	name := strings.TrimSpace(view.UserName)
	if name == "" {
		b.WriteString("Quiz Results\n\n")
	} else {
		fmt.Fprintf(&b, "Quiz Results - %s\n\n", name)
	}
	if title := strings.TrimSpace(view.Title); title != "" {
		fmt.Fprintf(&b, "Quiz: %s\n", title)
	}
	fmt.Fprintf(&b, "Score: %d/%d (%d%%)\n\n", score.Correct, score.Total, score.Percentage)
	b.WriteString("Question Breakdown:\n")

	for idx := range view.Questions {
		question, _ := view.Effective(idx)
		answer, ok := view.AnswerFor(question.ID)
		if !ok {
			continue
		}
		status := "[x]"
		if answer.IsCorrect {
			status = "[ok]"
		}
		fmt.Fprintf(&b, "\n%d. %s\n", idx+1, question.Question)
		fmt.Fprintf(&b, "%s Your answer: %s\n", status, answer.UserAnswer)
		if !answer.IsCorrect {
			fmt.Fprintf(&b, "Correct answer: %s\n", answer.CorrectAnswer)
		}
		if answer.Explanation != "" {
			fmt.Fprintf(&b, "Explanation: %s\n", answer.Explanation)
		}
	}
	return b.String()
}

func (s *Store) ResultsText() string {
	return ResultsText(s.View())
}
