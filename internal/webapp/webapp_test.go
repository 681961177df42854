package webapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pdf-quiz/internal/hooks"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
	"pdf-quiz/internal/session"
	"pdf-quiz/internal/state"
)

type fakeRemote struct {
	uploadErr error
	stream    string
}

func (f *fakeRemote) UploadPDF(_ context.Context, _ string, _ string, file io.Reader) (quizapi.UploadResult, error) {
	if f.uploadErr != nil {
		return quizapi.UploadResult{}, f.uploadErr
	}
	_, _ = io.Copy(io.Discard, file)
	return quizapi.UploadResult{
		QuizTitle: "Geography",
		Questions: []quiz.Question{
			{ID: "1", Question: "Capital of France?", Answer: "Paris", Options: []string{"Paris", "Rome"}},
			{ID: "2", Question: "Capital of Italy?", Answer: "Rome", Options: []string{"Paris", "Rome"}},
		},
	}, nil
}

// CheckAnswer grades against the questions sent with the request, like the
// real service does.
func (f *fakeRemote) CheckAnswer(_ context.Context, _ string, request quizapi.CheckAnswerRequest) (quiz.GradingResult, error) {
	for _, q := range request.Questions {
		if q.ID == request.QuestionID {
			return quiz.GradingResult{Correct: q.Answer == request.UserAnswer, CorrectAnswer: q.Answer}, nil
		}
	}
	return quiz.GradingResult{}, &quizapi.APIError{StatusCode: http.StatusNotFound, Message: "Question not found"}
}

func (f *fakeRemote) StreamFeedback(context.Context, string, quizapi.CheckAnswerRequest) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newTestClient(t *testing.T, remote *fakeRemote) *testClient {
	t.Helper()
	api := NewAPI(remote, state.NewManager(state.NewMemoryStore(), nil, nil), session.Cookies{}, time.Millisecond, nil)
	return &testClient{t: t, handler: NewRouter(api, RouterOptions{})}
}

func (c *testClient) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name != session.CookieName {
			continue
		}
		if cookie.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = cookie
		}
	}
	return rec
}

func (c *testClient) doJSON(method, path string, payload any) *httptest.ResponseRecorder {
	c.t.Helper()
	encoded, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("marshal request: %v", err)
	}
	return c.do(method, path, "application/json", bytes.NewReader(encoded))
}

func (c *testClient) upload(filename string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 test"))
	_ = writer.Close()
	return c.do(http.MethodPost, "/api/upload", writer.FormDataContentType(), &body)
}

func (c *testClient) state() stateResponse {
	c.t.Helper()
	rec := c.do(http.MethodGet, "/api/state", "", nil)
	var response stateResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		c.t.Fatalf("decode state: %v", err)
	}
	return response
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, want, rec.Body.String())
	}
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	expectStatus(t, rec, http.StatusSeeOther)
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestFreshSessionIsSentToUpload(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})

	expectRedirect(t, client.do(http.MethodGet, "/quiz", "", nil), "/upload")
	if client.cookie == nil {
		t.Fatalf("expected a session cookie on first visit")
	}
	expectRedirect(t, client.do(http.MethodGet, "/results", "", nil), "/upload")
	expectRedirect(t, client.do(http.MethodGet, "/", "", nil), "/upload")
	expectStatus(t, client.do(http.MethodGet, "/upload", "", nil), http.StatusOK)
}

func TestUploadMovesSessionToReview(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})

	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)
	got := client.state()
	if got.Step != quiz.StepEdit || got.Title != "Geography" || got.Route != "/review" {
		t.Fatalf("unexpected state: %+v", got)
	}
	expectRedirect(t, client.do(http.MethodGet, "/upload", "", nil), "/review")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.upload("notes.txt"), http.StatusUnprocessableEntity)
}

func TestUploadFailureReportsFriendlyMessage(t *testing.T) {
	client := newTestClient(t, &fakeRemote{uploadErr: &quizapi.APIError{StatusCode: 500, Message: "OpenAI rate limit exceeded"}})

	rec := client.upload("notes.pdf")
	expectStatus(t, rec, http.StatusBadGateway)
	if strings.Contains(rec.Body.String(), "OpenAI") {
		t.Fatalf("raw upstream error leaked: %s", rec.Body.String())
	}
	if got := client.state(); got.Step != quiz.StepUpload || got.Error == "" {
		t.Fatalf("expected upload step with an error, got %+v", got)
	}
}

func TestFullQuizFlow(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)
	expectStatus(t, client.doJSON(http.MethodPost, "/api/user-name", userNameRequest{Name: " Ada "}), http.StatusOK)
	expectStatus(t, client.do(http.MethodPost, "/api/quiz/start", "", nil), http.StatusOK)
	expectRedirect(t, client.do(http.MethodGet, "/review", "", nil), "/quiz/1")

	expectStatus(t, client.doJSON(http.MethodPut, "/api/answers/1", answerRequest{Answer: "Paris"}), http.StatusOK)
	rec := client.do(http.MethodPost, "/api/answers/1/submit", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var submitted submitResponse
	if err := json.NewDecoder(rec.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if !submitted.Result.Correct || !submitted.State.ShowFeedback || submitted.State.CurrentQuestionIndex != 0 {
		t.Fatalf("unexpected submit response: %+v", submitted)
	}
	expectStatus(t, client.doJSON(http.MethodPost, "/api/answers/1/submit", answerRequest{Answer: "Rome"}), http.StatusConflict)

	expectStatus(t, client.do(http.MethodPost, "/api/quiz/next", "", nil), http.StatusOK)
	expectStatus(t, client.doJSON(http.MethodPost, "/api/answers/2/submit", answerRequest{Answer: "Paris"}), http.StatusOK)
	expectStatus(t, client.do(http.MethodPost, "/api/quiz/next", "", nil), http.StatusOK)

	got := client.state()
	if got.Step != quiz.StepResults || !got.IsQuizComplete || got.Score.Percentage != 50 {
		t.Fatalf("unexpected final state: %+v", got)
	}
	expectStatus(t, client.do(http.MethodGet, "/results", "", nil), http.StatusOK)
	expectRedirect(t, client.do(http.MethodGet, "/quiz/1", "", nil), "/results")

	share := client.do(http.MethodGet, "/api/results/share", "", nil)
	expectStatus(t, share, http.StatusOK)
	text := share.Body.String()
	if !strings.Contains(text, "Quiz Results - Ada") || !strings.Contains(text, "Score: 1/2 (50%)") {
		t.Fatalf("unexpected share text:\n%s", text)
	}
}

func TestQuestionPageMovesIndex(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)
	expectStatus(t, client.do(http.MethodPost, "/api/quiz/start", "", nil), http.StatusOK)

	expectStatus(t, client.do(http.MethodGet, "/quiz/2", "", nil), http.StatusOK)
	if got := client.state(); got.CurrentQuestionIndex != 1 || got.CurrentQuestion == nil || got.CurrentQuestion.ID != "2" {
		t.Fatalf("unexpected state after /quiz/2: %+v", got)
	}
	expectRedirect(t, client.do(http.MethodGet, "/quiz/9", "", nil), "/quiz/1")
}

func TestEditedQuestionIsGradedAsEdited(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)

	answer := "Lyon"
	expectStatus(t, client.doJSON(http.MethodPut, "/api/questions/1", questionPatchRequest{Answer: &answer}), http.StatusOK)
	expectStatus(t, client.doJSON(http.MethodPut, "/api/questions/missing", questionPatchRequest{Answer: &answer}), http.StatusNotFound)

	expectStatus(t, client.do(http.MethodPost, "/api/quiz/start", "", nil), http.StatusOK)
	rec := client.doJSON(http.MethodPost, "/api/answers/1/submit", answerRequest{Answer: "Lyon"})
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"correct":true`) {
		t.Fatalf("edited answer should be graded correct: %s", rec.Body.String())
	}
}

func TestStartQuizWithoutQuestionsConflicts(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.do(http.MethodPost, "/api/quiz/start", "", nil), http.StatusConflict)
	if got := client.state(); got.Step != quiz.StepUpload {
		t.Fatalf("step = %q, want upload", got.Step)
	}
}

func TestUserNameValidation(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	rec := client.doJSON(http.MethodPost, "/api/user-name", userNameRequest{Name: "R2D2"})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "letters") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestFeedbackRelaysStream(t *testing.T) {
	client := newTestClient(t, &fakeRemote{stream: "data: Rome is\ndata: in Italy.\ndata: [DONE]\n"})
	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)

	rec := client.do(http.MethodGet, "/api/feedback/1?answer=Rome", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: Rome is in Italy.\n\n") || !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("unexpected stream:\n%s", body)
	}

	expectStatus(t, client.do(http.MethodGet, "/api/feedback/1", "", nil), http.StatusBadRequest)
	expectStatus(t, client.do(http.MethodGet, "/api/feedback/404?answer=x", "", nil), http.StatusNotFound)
}

func TestRestartClearsSession(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)
	first := client.cookie.Value

	expectStatus(t, client.do(http.MethodPost, "/api/restart", "", nil), http.StatusOK)
	if client.cookie != nil {
		t.Fatalf("restart should expire the session cookie")
	}
	got := client.state()
	if got.Step != quiz.StepUpload || len(got.Questions) != 0 || client.cookie == nil || client.cookie.Value == first {
		t.Fatalf("expected a fresh session, got %+v", got)
	}
}

func TestResetKeepsSessionButClearsQuiz(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.upload("notes.pdf"), http.StatusOK)
	first := client.cookie.Value

	expectStatus(t, client.do(http.MethodPost, "/api/reset", "", nil), http.StatusOK)
	got := client.state()
	if got.Step != quiz.StepUpload || len(got.Questions) != 0 || client.cookie.Value != first {
		t.Fatalf("unexpected state after reset: %+v", got)
	}
	expectStatus(t, client.do(http.MethodGet, "/api/results/share", "", nil), http.StatusConflict)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, &fakeRemote{})
	expectStatus(t, client.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

func TestWriteHookErrorFallsBackToGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	writeHookError(rec, errors.New("boom"))
	expectStatus(t, rec, http.StatusInternalServerError)
}

func TestEvictedSessionDropsFeedbackOwner(t *testing.T) {
	sessions := state.NewManager(state.NewMemoryStore(), nil, nil, state.WithIdleTimeout(time.Nanosecond))
	api := NewAPI(&fakeRemote{}, sessions, session.Cookies{}, time.Millisecond, nil)

	store := sessions.Get(context.Background(), "abc")
	api.feedback("abc", store)
	time.Sleep(time.Millisecond)

	if ids := sessions.Sweep(); len(ids) != 1 {
		t.Fatalf("expected one evicted session, got %v", ids)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.feedbacks) != 0 {
		t.Fatalf("feedback owner survived eviction: %d left", len(api.feedbacks))
	}
}

func TestWriteHookErrorMapsDuplicateToConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeHookError(rec, &hooks.Failure{Message: "already answered", Cause: hooks.ErrAlreadyAnswered})
	expectStatus(t, rec, http.StatusConflict)
}
