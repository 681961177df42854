package webapp

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pdf-quiz/internal/hooks"
	"pdf-quiz/internal/navigation"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/validation"
)

// HandlePage answers a direct visit to one of the app's pages: either a 303 to
// where the session actually is, or the state the page renders from.
func (a *API) HandlePage(w http.ResponseWriter, r *http.Request) {
	_, store := a.session(w, r)

	decision := navigation.Resolve(r.URL.Path, store.View())
	if !decision.Stay() {
		http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
		return
	}
	if decision.HasIndex {
		store.SetCurrentQuestionIndex(decision.QuestionIndex)
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Page:  r.URL.Path,
		State: toStateResponse(store.View()),
	})
}

func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	_, store := a.session(w, r)
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

func (a *API) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, hooks.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(hooks.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if err := hooks.CheckPDF(header.Filename, header.Header.Get("Content-Type"), header.Size); err != nil {
		writeHookError(w, err)
		return
	}

	a.resetFeedback(sessionID)
	upload := hooks.NewUpload(a.remote, store, sessionID, a.log.With("session_id", sessionID))
	if err := upload.Run(r.Context(), header.Filename, file); err != nil {
		writeHookError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

func (a *API) HandleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	_, store := a.session(w, r)

	var request questionPatchRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, ok := store.UpdateQuestion(chi.URLParam(r, "id"), quiz.QuestionPatch{
		Question: request.Question,
		Answer:   request.Answer,
		Options:  request.Options,
	})
	if !ok {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) HandleStartQuiz(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)
	if !store.CanNavigateToStep(quiz.StepQuiz) {
		writeError(w, http.StatusConflict, "no questions to start a quiz with")
		return
	}
	a.resetFeedback(sessionID)
	store.StartQuiz()
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

func (a *API) HandleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	_, store := a.session(w, r)

	var request answerRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	questionID := chi.URLParam(r, "id")
	if _, ok := store.EffectiveQuestion(questionID); !ok {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	store.SetUserAnswer(questionID, request.Answer)
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

// HandleSubmitAnswer grades the answer in the body, or the saved selection
// when the body is empty.
func (a *API) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)
	questionID := chi.URLParam(r, "id")

	var request answerRequest
	if err := decodeJSON(w, r, &request); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	answer := strings.TrimSpace(request.Answer)
	if answer == "" {
		answer = store.UserAnswer(questionID)
	}
	if answer == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}
	if _, ok := store.EffectiveQuestion(questionID); !ok {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	if _, answered := store.View().AnswerFor(questionID); answered {
		writeError(w, http.StatusConflict, "question already answered")
		return
	}

	check := hooks.NewAnswerCheck(a.remote, store, sessionID, a.log.With("session_id", sessionID))
	result, err := check.Run(r.Context(), questionID, answer)
	if err != nil {
		writeHookError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Result: result, State: toStateResponse(store.View())})
}

func (a *API) HandleNextQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)
	a.resetFeedback(sessionID)
	store.NextQuestion()
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

func (a *API) HandleUserName(w http.ResponseWriter, r *http.Request) {
	_, store := a.session(w, r)

	var request userNameRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name, err := validation.UserName(request.Name)
	if err != nil {
		writeHookError(w, err)
		return
	}
	store.SetUserName(name)
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

func (a *API) HandleReset(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)
	a.resetFeedback(sessionID)
	store.ResetQuiz()
	writeJSON(w, http.StatusOK, toStateResponse(store.View()))
}

// HandleRestart ends the session entirely; the next request gets a new id.
func (a *API) HandleRestart(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)
	a.resetFeedback(sessionID)
	store.ResetQuiz()
	if err := a.sessions.Drop(r.Context(), sessionID); err != nil {
		a.log.Warn("session drop failed", "session_id", sessionID, "error", err)
	}
	a.cookies.Clear(w)
	writeJSON(w, http.StatusOK, restartResponse{Redirect: navigation.UploadPath})
}

func (a *API) HandleShareResults(w http.ResponseWriter, r *http.Request) {
	_, store := a.session(w, r)
	view := store.View()
	if view.AnswerCount() == 0 {
		writeError(w, http.StatusConflict, "no results to share yet")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(quiz.ResultsText(view)))
}

func (a *API) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
