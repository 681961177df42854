package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
)

func promptLine(reader *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptAnswer reads one option letter and returns the option's zero-based index.
func promptAnswer(reader *bufio.Reader, out io.Writer, optionCount int) (int, bool, error) {
	if optionCount < 1 {
		return -1, false, nil
	}

	maxLetter := byte('A' + optionCount - 1)
	line, err := promptLine(reader, out, fmt.Sprintf("Your answer (A-%c): ", maxLetter))
	if err != nil {
		return -1, false, err
	}

	answer := strings.ToUpper(line)
	if len(answer) != 1 {
		return -1, false, nil
	}
	letter := answer[0]
	if letter < 'A' || letter > maxLetter {
		return -1, false, nil
	}
	return int(letter - 'A'), true, nil
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		line, err := promptLine(reader, out, prompt)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, quizapi.ErrServiceUnavailable) {
		return fmt.Errorf("quiz service unavailable at %s", serverURL)
	}
	return err
}

func printQuestion(out io.Writer, number, total int, question quiz.Question) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d: %s\n", number, total, question.Question)
	if len(question.Options) > 0 {
		fmt.Fprintln(out)
	}
	for idx, option := range question.Options {
		fmt.Fprintf(out, "%c. %s\n", 'A'+idx, option)
	}
	fmt.Fprintln(out)
}

func printReview(out io.Writer, view quiz.View) {
	fmt.Fprintf(out, "\n%s (%d questions)\n", view.Title, view.QuestionCount())
	for idx := range view.Questions {
		question, _ := view.Effective(idx)
		fmt.Fprintf(out, "%d. %s\n   answer: %s\n", idx+1, question.Question, question.Answer)
	}
}
