package hooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
)

type fakeAPI struct {
	upload      quizapi.UploadResult
	uploadErr   error
	stepDuring  quiz.Step
	store       *quiz.Store
	check       quiz.GradingResult
	checkErr    error
	lastCheck   quizapi.CheckAnswerRequest
	stream      string
	streamErr   error
	streamBlock bool
}

func (f *fakeAPI) UploadPDF(_ context.Context, _ string, _ string, _ io.Reader) (quizapi.UploadResult, error) {
	if f.store != nil {
		f.stepDuring = f.store.View().Step
	}
	return f.upload, f.uploadErr
}

func (f *fakeAPI) CheckAnswer(_ context.Context, _ string, request quizapi.CheckAnswerRequest) (quiz.GradingResult, error) {
	f.lastCheck = request
	return f.check, f.checkErr
}

func (f *fakeAPI) StreamFeedback(ctx context.Context, _ string, _ quizapi.CheckAnswerRequest) (io.ReadCloser, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.streamBlock {
		reader, writer := io.Pipe()
		go func() {
			_, _ = writer.Write([]byte("data: partial\n"))
			<-ctx.Done()
			_ = writer.CloseWithError(ctx.Err())
		}()
		return reader, nil
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

func questions() []quiz.Question {
	return []quiz.Question{
		{ID: "1", Question: "Capital of France?", Answer: "Paris", Options: []string{"Paris", "Rome"}},
		{ID: "2", Question: "2 + 2?", Answer: "4", Options: []string{"4", "5"}},
	}
}

func TestUploadSuccessMovesToEdit(t *testing.T) {
	store := quiz.NewStore()
	api := &fakeAPI{store: store, upload: quizapi.UploadResult{QuizTitle: "Notes", Questions: questions()}}

	if err := NewUpload(api, store, "s", nil).Run(context.Background(), "notes.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if api.stepDuring != quiz.StepGenerating {
		t.Fatalf("step during request = %q, want generating", api.stepDuring)
	}
	view := store.View()
	if view.Step != quiz.StepEdit || view.Title != "Notes" || len(view.Questions) != 2 || view.Loading {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestUploadFailureRevertsAndTranslates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "ai", err: &quizapi.APIError{StatusCode: 500, Message: "OpenAI API key not configured"}, want: msgUploadAI},
		{name: "pdf", err: &quizapi.APIError{StatusCode: 400, Message: "Invalid PDF file"}, want: msgUploadPDF},
		{name: "server", err: &quizapi.APIError{StatusCode: 502, Message: "Bad Gateway"}, want: msgUploadServer},
		{name: "generic", err: errors.New("connection reset"), want: msgUploadGeneric},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := quiz.NewStore()
			api := &fakeAPI{store: store, uploadErr: tc.err}
			err := NewUpload(api, store, "s", nil).Run(context.Background(), "f.pdf", strings.NewReader(""))

			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *Failure, got %v", err)
			}
			if failure.Message != tc.want {
				t.Fatalf("message = %q, want %q", failure.Message, tc.want)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("cause not preserved")
			}
			view := store.View()
			if view.Step != quiz.StepUpload || view.Error != tc.want {
				t.Fatalf("unexpected view after failure: %+v", view)
			}
		})
	}
}

func TestUploadWithNoQuestionsFails(t *testing.T) {
	store := quiz.NewStore()
	err := NewUpload(&fakeAPI{}, store, "", nil).Run(context.Background(), "f.pdf", strings.NewReader(""))
	if UserMessage(err, "") != msgUploadEmpty {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.View().Step != quiz.StepUpload {
		t.Fatalf("expected upload step")
	}
}

func TestAnswerCheckSubmitsResult(t *testing.T) {
	store := quiz.NewStore()
	store.SetQuiz("T", questions())
	store.UpdateQuestion("2", quiz.QuestionPatch{Options: []string{"4", "5", "6"}})
	store.StartQuiz()

	api := &fakeAPI{check: quiz.GradingResult{Correct: true, CorrectAnswer: "Paris"}}
	result, err := NewAnswerCheck(api, store, "s", nil).Run(context.Background(), "1", "Paris")
	if err != nil || !result.Correct {
		t.Fatalf("Run = (%+v, %v)", result, err)
	}
	if len(api.lastCheck.Questions) != 2 || len(api.lastCheck.Questions[1].Options) != 3 {
		t.Fatalf("request should carry edited questions: %+v", api.lastCheck.Questions)
	}
	view := store.View()
	if len(view.Answers) != 1 || !view.ShowFeedback || view.UserAnswers["1"] != "Paris" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestAnswerCheckFailureMessages(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusNotFound, msgCheckNotFound},
		{http.StatusInternalServerError, msgCheckServer},
		{http.StatusBadRequest, msgCheckGeneric},
	}
	for _, tc := range tests {
		store := quiz.NewStore()
		store.SetQuiz("T", questions())
		api := &fakeAPI{checkErr: &quizapi.APIError{StatusCode: tc.status}}
		_, err := NewAnswerCheck(api, store, "s", nil).Run(context.Background(), "1", "Rome")
		if got := UserMessage(err, ""); got != tc.want {
			t.Fatalf("status %d message = %q, want %q", tc.status, got, tc.want)
		}
		if len(store.View().Answers) != 0 {
			t.Fatalf("failed check must not record an answer")
		}
	}
}

func TestFeedbackAccumulatesAndNormalizes(t *testing.T) {
	store := quiz.NewStore()
	store.SetQuiz("T", questions())
	api := &fakeAPI{stream: "data: Paris  is\ndata: the\tcapital\ndata: .\ndata: [DONE]\ndata: ignored\n"}

	sub := NewFeedback(api, store, "s", 5*time.Millisecond, nil).Start(context.Background(), "1", "Rome")
	var last string
	for text := range sub.Updates() {
		last = text
	}
	<-sub.Done()

	if last != "Paris is the capital." {
		t.Fatalf("last update = %q", last)
	}
	if sub.Text() != last || sub.Streaming() || sub.Err() != nil {
		t.Fatalf("unexpected final state: text=%q streaming=%t err=%v", sub.Text(), sub.Streaming(), sub.Err())
	}
}

func TestFeedbackStreamErrorIsExposed(t *testing.T) {
	store := quiz.NewStore()
	api := &fakeAPI{streamErr: &quizapi.APIError{StatusCode: 500}}
	sub := NewFeedback(api, store, "s", 0, nil).Start(context.Background(), "1", "Rome")
	<-sub.Done()
	if sub.Err() == nil || sub.Streaming() {
		t.Fatalf("expected error and stopped stream, got err=%v streaming=%t", sub.Err(), sub.Streaming())
	}
}

func TestFeedbackCloseStopsStream(t *testing.T) {
	store := quiz.NewStore()
	api := &fakeAPI{streamBlock: true}
	feedback := NewFeedback(api, store, "s", time.Millisecond, nil)
	sub := feedback.Start(context.Background(), "1", "Rome")

	deadline := time.After(2 * time.Second)
	for sub.Text() == "" {
		select {
		case <-deadline:
			t.Fatalf("no partial text received")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	feedback.Reset()
	select {
	case <-sub.Done():
	default:
		t.Fatalf("Reset should wait for the stream to stop")
	}
	if sub.Err() != nil {
		t.Fatalf("cancelled stream should not report an error, got %v", sub.Err())
	}
	for range sub.Updates() {
	}
}

func TestAppendChunk(t *testing.T) {
	tests := []struct {
		text, chunk, want string
	}{
		{"", "  hello   world ", "hello world"},
		{"hello", "world", "hello world"},
		{"hello", ", there", "hello, there"},
		{"hello", "   ", "hello"},
	}
	for _, tc := range tests {
		if got := appendChunk(tc.text, tc.chunk); got != tc.want {
			t.Fatalf("appendChunk(%q, %q) = %q, want %q", tc.text, tc.chunk, got, tc.want)
		}
	}
}

func TestCheckPDF(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		want        string
	}{
		{name: "pdf by extension", filename: "notes.PDF", size: 1024},
		{name: "pdf by content type", filename: "upload", contentType: "application/pdf", size: 1024},
		{name: "not a pdf", filename: "notes.txt", contentType: "text/plain", size: 10, want: msgUploadNotPDF},
		{name: "too large", filename: "big.pdf", size: MaxUploadBytes + 1, want: msgUploadTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPDF(tc.filename, tc.contentType, tc.size)
			if got := UserMessage(err, ""); got != tc.want {
				t.Fatalf("CheckPDF message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAnswerCheckReportsLostRace(t *testing.T) {
	store := quiz.NewStore()
	store.SetQuiz("T", questions())
	store.StartQuiz()
	api := &fakeAPI{check: quiz.GradingResult{Correct: false, CorrectAnswer: "Paris"}}
	check := NewAnswerCheck(api, store, "s", nil)

	if _, err := check.Run(context.Background(), "1", "Rome"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := check.Run(context.Background(), "1", "Paris")
	if !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if UserMessage(err, "") != msgCheckDuplicate {
		t.Fatalf("unexpected message %q", UserMessage(err, ""))
	}
	if view := store.View(); len(view.Answers) != 1 || view.Answers[0].UserAnswer != "Rome" {
		t.Fatalf("first answer must stand: %+v", view.Answers)
	}
}
