package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nikhilbhutani/ttsserver/internal/api/handlers"
	"github.com/nikhilbhutani/ttsserver/internal/api/middleware"
	"github.com/nikhilbhutani/ttsserver/internal/auth"
	"github.com/nikhilbhutani/ttsserver/internal/config"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

type HistoryStore interface {
	handlers.Recorder
	handlers.HistoryLister
}

// Deps are the collaborators built in main. Jobs and History are optional;
// their routes are only mounted when set.
type Deps struct {
	Handle  *tts.Handle
	Jobs    handlers.JobQueue
	History HistoryStore
	Checks  map[string]handlers.Check
}

type Router struct {
	mux     *chi.Mux
	cfg     *config.Config
	deps    Deps
	limiter *middleware.RateLimiter
	done    chan struct{}
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		cfg:     cfg,
		deps:    deps,
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		done:    make(chan struct{}),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	limit := rt.cfg.RateLimit.RPS > 0
	trustProxy := rt.cfg.RateLimit.TrustProxy

	r.Use(chimiddleware.RequestID)
	// Without a trusted proxy the limiter must see the connection address,
	// so it runs before RealIP rewrites RemoteAddr from request headers.
	if limit && !trustProxy {
		r.Use(rt.limiter.Limit)
	}
	r.Use(chimiddleware.RealIP)
	if limit && trustProxy {
		r.Use(rt.limiter.Limit)
	}
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORS.AllowedOrigins))

	if limit {
		go rt.limiter.RunCleanup(time.Minute, 3*time.Minute, rt.done)
	}

	checks := map[string]handlers.Check{
		"model": func(ctx context.Context) error {
			_, err := rt.deps.Handle.Engine()
			return err
		},
	}
	for name, c := range rt.deps.Checks {
		checks[name] = c
	}
	health := handlers.NewHealthHandler(checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	var history handlers.Recorder
	if rt.deps.History != nil {
		history = rt.deps.History
	}

	ttsH := handlers.NewTTSHandler(rt.deps.Handle, handlers.TTSOptions{
		DefaultLanguage: rt.cfg.TTS.DefaultLanguage,
		MaxTextLength:   rt.cfg.TTS.MaxTextLength,
		Timeout:         rt.cfg.TTS.SynthesisTimeout,
		History:         history,
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", ttsH.Status)

		r.Group(func(r chi.Router) {
			if rt.cfg.Auth.Enabled() {
				r.Use(auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret).Authenticate)
			}

			r.Post("/tts", ttsH.Synthesize)
			r.Get("/speakers", ttsH.Speakers)
			r.Get("/languages", ttsH.Languages)

			if rt.deps.Jobs != nil {
				jobH := handlers.NewJobHandler(rt.deps.Jobs, rt.cfg.TTS.DefaultLanguage, rt.cfg.TTS.MaxTextLength)
				r.Post("/tts/jobs", jobH.Submit)
				r.Get("/tts/jobs/{id}", jobH.Get)
			}

			if rt.deps.History != nil {
				historyH := handlers.NewHistoryHandler(rt.deps.History)
				r.Get("/history", historyH.List)
			}
		})
	})

	return otelhttp.NewHandler(r, "ttsserver",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Close stops background maintenance started by Setup.
func (rt *Router) Close() {
	select {
	case <-rt.done:
	default:
		close(rt.done)
	}
}
