package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pdf-quiz/internal/hooks"
	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
	"pdf-quiz/internal/session"
	"pdf-quiz/internal/validation"
)

const (
	defaultHTTPTimeout       = 60 * time.Second
	defaultMaxInvalidAnswers = 3
)

type Config struct {
	ServerURL         string
	PDFPath           string
	UserName          string
	MaxInvalidAnswers int
	HTTPTimeout       time.Duration
	SyncTimeout       time.Duration
	FeedbackDebounce  time.Duration
	Logger            *logger.Logger
}

type remoteAPI interface {
	hooks.Uploader
	hooks.AnswerChecker
	hooks.FeedbackStreamer
}

type app struct {
	reader    *bufio.Reader
	out       io.Writer
	client    *quizapi.Client
	remote    remoteAPI
	store     *quiz.Store
	sessionID string
	cfg       Config
	baseLog   *logger.Logger
	log       *logger.Logger
}

// Run plays quizzes in the terminal until the user declines another round or
// input ends.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	if cfg.MaxInvalidAnswers <= 0 {
		cfg.MaxInvalidAnswers = defaultMaxInvalidAnswers
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	client := quizapi.NewClient(cfg.ServerURL, &http.Client{Timeout: cfg.HTTPTimeout})
	cfg.ServerURL = client.BaseURL()

	a := &app{
		reader:  bufio.NewReader(in),
		out:     out,
		client:  client,
		remote:  client,
		cfg:     cfg,
		baseLog: log,
	}
	defer a.endSession()

	fmt.Fprintf(out, "pdf-quiz\nserver=%s\n", cfg.ServerURL)
	return a.loop(ctx)
}

func (a *app) loop(ctx context.Context) error {
	pdfPath := a.cfg.PDFPath
	for {
		a.startSession()
		if err := a.round(ctx, pdfPath); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}

		again, err := promptYesNo(a.reader, a.out, "\nTake another quiz? [y/n]: ")
		if err != nil || !again {
			return nil
		}
		pdfPath = ""
	}
}

// startSession gives each round its own server-side session, so edits synced
// during one quiz never land on the next one's questions.
func (a *app) startSession() {
	a.endSession()
	a.sessionID = session.NewID()
	a.log = a.baseLog.With("session_id", a.sessionID)
	a.store = quiz.NewStore(
		quiz.WithLogger(a.log),
		quiz.WithSyncer(a.client.Syncer(a.sessionID), a.cfg.SyncTimeout),
	)
}

func (a *app) endSession() {
	if a.store != nil {
		a.store.WaitForSync()
	}
}

func (a *app) round(ctx context.Context, pdfPath string) error {
	if err := a.upload(ctx, pdfPath); err != nil {
		return err
	}
	if err := a.review(); err != nil {
		return err
	}
	if err := a.askName(); err != nil {
		return err
	}
	if err := a.play(ctx); err != nil {
		return err
	}

	score := a.store.Score()
	fmt.Fprintf(a.out, "\n%s\n", a.store.ResultsText())
	fmt.Fprintln(a.out, score.Message())
	return nil
}

func (a *app) upload(ctx context.Context, pdfPath string) error {
	for {
		if pdfPath == "" {
			line, err := promptLine(a.reader, a.out, "\nPDF file: ")
			if err != nil {
				return err
			}
			if line == "" {
				continue
			}
			pdfPath = line
		}

		err := a.uploadFile(ctx, pdfPath)
		if err == nil {
			return nil
		}
		fmt.Fprintf(a.out, "error: %s\n", hooks.UserMessage(err, describeClientError(err, a.cfg.ServerURL).Error()))
		if a.cfg.PDFPath != "" && pdfPath == a.cfg.PDFPath {
			return err
		}
		pdfPath = ""
	}
}

func (a *app) uploadFile(ctx context.Context, pdfPath string) error {
	file, err := os.Open(pdfPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if err := hooks.CheckPDF(info.Name(), "", info.Size()); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Generating questions from %s...\n", filepath.Base(pdfPath))
	return hooks.NewUpload(a.remote, a.store, a.sessionID, a.log).Run(ctx, info.Name(), file)
}

// review shows the generated questions and lets the user fix any of them
// before the quiz starts.
func (a *app) review() error {
	for {
		view := a.store.View()
		printReview(a.out, view)

		edit, err := promptYesNo(a.reader, a.out, "\nEdit a question? [y/n]: ")
		if err != nil {
			return err
		}
		if !edit {
			return nil
		}

		line, err := promptLine(a.reader, a.out, fmt.Sprintf("Question number (1-%d): ", view.QuestionCount()))
		if err != nil {
			return err
		}
		number, convErr := strconv.Atoi(line)
		question, ok := view.Effective(number - 1)
		if convErr != nil || !ok {
			fmt.Fprintln(a.out, "No such question.")
			continue
		}

		var patch quiz.QuestionPatch
		text, err := promptLine(a.reader, a.out, "New question (blank keeps it): ")
		if err != nil {
			return err
		}
		if text != "" {
			patch.Question = &text
		}
		answer, err := promptLine(a.reader, a.out, "New answer (blank keeps it): ")
		if err != nil {
			return err
		}
		if answer != "" {
			patch.Answer = &answer
		}
		a.store.UpdateQuestion(question.ID, patch)
	}
}

func (a *app) askName() error {
	raw := a.cfg.UserName
	for attempt := 1; attempt <= a.cfg.MaxInvalidAnswers; attempt++ {
		if raw == "" {
			line, err := promptLine(a.reader, a.out, "\nYour name: ")
			if err != nil {
				return err
			}
			raw = line
		}
		name, err := validation.UserName(raw)
		if err == nil {
			a.store.SetUserName(name)
			return nil
		}
		fmt.Fprintf(a.out, "%v\n", err)
		raw = ""
	}
	fmt.Fprintln(a.out, "Continuing without a name.")
	return nil
}

func (a *app) play(ctx context.Context) error {
	a.store.StartQuiz()
	check := hooks.NewAnswerCheck(a.remote, a.store, a.sessionID, a.log)
	feedback := hooks.NewFeedback(a.remote, a.store, a.sessionID, a.cfg.FeedbackDebounce, a.log)
	defer feedback.Reset()

	total := a.store.View().QuestionCount()
	for !a.store.IsQuizComplete() {
		view := a.store.View()
		question, _ := view.Effective(view.CurrentQuestionIndex)
		printQuestion(a.out, view.CurrentQuestionIndex+1, total, question)

		answer, ok, err := a.readAnswer(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(a.out, "Skipping. Correct answer was %s\n", question.Answer)
			a.store.NextQuestion()
			continue
		}

		result, err := check.Run(ctx, question.ID, answer)
		if err != nil {
			fmt.Fprintf(a.out, "error: %s\n", hooks.UserMessage(err, err.Error()))
			if quizapi.StatusCode(err) == http.StatusNotFound {
				return err
			}
			continue
		}

		if result.Correct {
			fmt.Fprintln(a.out, "Correct!")
		} else {
			fmt.Fprintf(a.out, "Wrong. Correct answer was %s\n", result.CorrectAnswer)
			a.explain(ctx, feedback, question.ID, answer, result)
		}
		a.store.NextQuestion()
		feedback.Reset()
	}
	return nil
}

// readAnswer takes a letter for multiple-choice questions and free text
// otherwise. ok is false once the user runs out of attempts.
func (a *app) readAnswer(question quiz.Question) (string, bool, error) {
	for attempt := 1; attempt <= a.cfg.MaxInvalidAnswers; attempt++ {
		if len(question.Options) == 0 {
			line, err := promptLine(a.reader, a.out, "Your answer: ")
			if err != nil {
				return "", false, err
			}
			if line != "" {
				return line, true, nil
			}
		} else {
			index, ok, err := promptAnswer(a.reader, a.out, len(question.Options))
			if err != nil {
				return "", false, err
			}
			if ok {
				return question.Options[index], true, nil
			}
		}
		if attempt < a.cfg.MaxInvalidAnswers {
			fmt.Fprintln(a.out, "Invalid input, try again.")
		}
	}
	return "", false, nil
}

func (a *app) explain(ctx context.Context, feedback *hooks.Feedback, questionID, answer string, result quiz.GradingResult) {
	if strings.TrimSpace(result.Explanation) != "" {
		fmt.Fprintf(a.out, "Explanation: %s\n", result.Explanation)
		return
	}

	sub := feedback.Start(ctx, questionID, answer)
	<-sub.Done()
	if text := sub.Text(); text != "" {
		fmt.Fprintf(a.out, "Explanation: %s\n", text)
	}
}
