package webapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pdf-quiz/internal/navigation"
)

type RouterOptions struct {
	AllowedOrigins []string
	// RequestTimeout bounds non-streaming handlers; zero disables it.
	RequestTimeout time.Duration
}

func NewRouter(api *API, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(api.log), middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", api.HandleHealth)

	// The feedback stream stays open for as long as the explanation takes.
	r.Get("/api/feedback/{id}", api.HandleFeedback)

	r.Group(func(tr chi.Router) {
		if opts.RequestTimeout > 0 {
			tr.Use(middleware.Timeout(opts.RequestTimeout))
		}

		tr.Get("/", api.HandlePage)
		tr.Get(navigation.UploadPath, api.HandlePage)
		tr.Get(navigation.ReviewPath, api.HandlePage)
		tr.Get(navigation.QuizPath, api.HandlePage)
		tr.Get(navigation.QuizPath+"/{number}", api.HandlePage)
		tr.Get(navigation.ResultsPath, api.HandlePage)

		tr.Route("/api", func(ar chi.Router) {
			ar.Get("/state", api.HandleState)
			ar.Post("/upload", api.HandleUpload)
			ar.Put("/questions/{id}", api.HandleUpdateQuestion)
			ar.Post("/quiz/start", api.HandleStartQuiz)
			ar.Post("/quiz/next", api.HandleNextQuestion)
			ar.Put("/answers/{id}", api.HandleSelectAnswer)
			ar.Post("/answers/{id}/submit", api.HandleSubmitAnswer)
			ar.Post("/user-name", api.HandleUserName)
			ar.Post("/reset", api.HandleReset)
			ar.Post("/restart", api.HandleRestart)
			ar.Get("/results/share", api.HandleShareResults)
		})
	})

	return r
}
