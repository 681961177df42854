package webapp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const msgFeedbackUnavailable = "Detailed feedback is unavailable right now."

// HandleFeedback relays the explanation stream for a wrong answer as
// server-sent events. Each event carries the full text so far; the stream ends
// with "[DONE]". Disconnecting the client cancels the upstream request.
func (a *API) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID, store := a.session(w, r)
	questionID := chi.URLParam(r, "id")

	answer := strings.TrimSpace(r.URL.Query().Get("answer"))
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := a.feedback(sessionID, store).Start(r.Context(), questionID, answer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case text, open := <-sub.Updates():
			if !open {
				if sub.Err() != nil {
					writeEvent(w, "error", msgFeedbackUnavailable)
				} else {
					writeEvent(w, "", "[DONE]")
				}
				flusher.Flush()
				return
			}
			writeEvent(w, "", text)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event, data string) {
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}
