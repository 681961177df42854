package hooks

import (
	"errors"
	"net/http"
	"strings"

	"pdf-quiz/internal/quizapi"
)

// Failure is a remote-call error translated for the person using the app.
// Cause keeps the original error for logs.
type Failure struct {
	Message string
	Cause   error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Cause }

// UserMessage returns the user-facing text for err, falling back to generic.
func UserMessage(err error, generic string) string {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return generic
}

const (
	msgUploadAI       = "The AI service could not generate questions right now. Please try again in a moment."
	msgUploadPDF      = "We couldn't read that PDF. Please check the file and try again."
	msgUploadServer   = "The server ran into a problem while generating your quiz. Please try again."
	msgUploadGeneric  = "Failed to generate the quiz. Please try again."
	msgUploadEmpty    = "No questions could be generated from this PDF."
	msgUploadNotPDF   = "Please choose a PDF file."
	msgUploadTooLarge = "The PDF is larger than 10 MB."

	msgCheckNotFound  = "Question not found. Please restart the quiz."
	msgCheckServer    = "Server error while checking your answer. Please try again."
	msgCheckGeneric   = "Failed to check your answer. Please try again."
	msgCheckDuplicate = "This question has already been answered."
)

func uploadMessage(err error) string {
	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "openai", "ai service", "api key", "api_key", "rate limit", "rate_limit", "generate questions", " ai "):
		return msgUploadAI
	case strings.Contains(text, "pdf"):
		return msgUploadPDF
	case quizapi.StatusCode(err) >= http.StatusInternalServerError, containsAny(text, "500", "server error", "internal server"):
		return msgUploadServer
	default:
		return msgUploadGeneric
	}
}

func checkMessage(err error) string {
	switch quizapi.StatusCode(err) {
	case http.StatusNotFound:
		return msgCheckNotFound
	case http.StatusInternalServerError:
		return msgCheckServer
	default:
		return msgCheckGeneric
	}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
