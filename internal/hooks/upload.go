package hooks

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
)

// MaxUploadBytes is the largest PDF the generator accepts.
const MaxUploadBytes = 10 << 20

// CheckPDF rejects files that are not PDFs or are too large, before any
// network call is made.
func CheckPDF(filename, contentType string, size int64) error {
	isPDF := strings.EqualFold(filepath.Ext(filename), ".pdf") ||
		strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
	if !isPDF {
		return &Failure{Message: msgUploadNotPDF}
	}
	if size > MaxUploadBytes {
		return &Failure{Message: msgUploadTooLarge}
	}
	return nil
}

type Uploader interface {
	UploadPDF(ctx context.Context, sessionID, filename string, file io.Reader) (quizapi.UploadResult, error)
}

type Upload struct {
	api       Uploader
	store     *quiz.Store
	sessionID string
	log       *logger.Logger
}

func NewUpload(api Uploader, store *quiz.Store, sessionID string, log *logger.Logger) *Upload {
	if log == nil {
		log = logger.Nop()
	}
	return &Upload{api: api, store: store, sessionID: sessionID, log: log}
}

// Run uploads file and loads the generated quiz into the store. The store is
// in StepGenerating only while the request is in flight; on failure it goes
// back to StepUpload and the returned *Failure carries the message to show.
func (u *Upload) Run(ctx context.Context, filename string, file io.Reader) error {
	u.store.ClearError()
	u.store.SetLoading(true)
	defer u.store.SetLoading(false)

	u.store.SetStep(quiz.StepGenerating)
	result, err := u.api.UploadPDF(ctx, u.sessionID, filename, file)
	if err != nil {
		return u.fail(uploadMessage(err), err)
	}
	if len(result.Questions) == 0 {
		return u.fail(msgUploadEmpty, nil)
	}

	u.store.SetQuiz(result.QuizTitle, result.Questions)
	u.store.SetStep(quiz.StepEdit)
	u.log.Info("quiz generated", "file", filename, "questions", len(result.Questions))
	return nil
}

func (u *Upload) fail(message string, cause error) error {
	u.log.Error("pdf upload failed", "error", cause, "message", message)
	u.store.SetStep(quiz.StepUpload)
	u.store.SetError(message)
	return &Failure{Message: message, Cause: cause}
}
