package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"golang.org/x/sync/errgroup"

	"github.com/rahul4469/meal-analyzer/internal/config"
	"github.com/rahul4469/meal-analyzer/internal/controllers"
	"github.com/rahul4469/meal-analyzer/internal/middleware"
	"github.com/rahul4469/meal-analyzer/internal/models"
	"github.com/rahul4469/meal-analyzer/internal/services"
	"github.com/rahul4469/meal-analyzer/internal/views"
	"github.com/rahul4469/meal-analyzer/static"
	"github.com/rahul4469/meal-analyzer/templates"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = 5 * time.Minute

	// headroom for multipart framing on top of the image limit
	formOverheadBytes = 1 << 20
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Setup Services ---------------
	store := models.NewWorkflowStore(cfg.Security.SessionTTL)
	selector := services.NewImageSelector(cfg.Limits.MaxUploadBytes)
	analyzer := services.NewNutritionAnalyzer(cfg.Webhook.URL, cfg.Webhook.Timeout)

	homeTpl, err := views.ParseFS(templates.FS, "pages/home.gohtml")
	if err != nil {
		return err
	}

	// analyses outlive the request that started them, but not the process
	analysisCtx, cancelAnalyses := context.WithCancel(context.Background())
	defer cancelAnalyses()

	// Setup Controllers ---------------
	analyzeCtrl := controllers.NewAnalyzeController(
		analysisCtx,
		store,
		selector,
		analyzer,
		controllers.AnalyzeTemplates{Home: homeTpl},
	)
	apiCtrl := controllers.NewAPIController(selector, analyzer)

	// Middleware ---------------
	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)
	sessionMw := middleware.NewSessionMiddleware(
		[]byte(cfg.Security.SessionHashKey),
		cfg.Security.SessionCookieName,
		cfg.Security.SessionTTL,
		cfg.Security.SecureCookies,
	)

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(selector.MaxBytes() + formOverheadBytes))

	// ---- Public Routes ----
	r.Get("/healthz", controllers.HealthCheck)
	r.Handle("/static/*", controllers.StaticHandler(static.FS))
	r.Post("/api/analyze", apiCtrl.PostAnalyze)

	// ---- Session Routes ----
	r.Group(func(r chi.Router) {
		if !cfg.IsProduction() {
			r.Use(middleware.PlaintextHTTP)
		}
		r.Use(csrfMw)
		r.Use(sessionMw.SetSession)

		r.Get("/", analyzeCtrl.GetHome)
		r.Post("/analyze", analyzeCtrl.PostAnalyze)
		r.Post("/reset", analyzeCtrl.PostReset)
		r.Get("/api/state", analyzeCtrl.GetState)
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		store.RunJanitor(gctx, janitorInterval)
		return nil
	})

	g.Go(func() error {
		log.Printf("Starting server at %s (env=%s, webhook=%s)", cfg.Server.BaseURL, cfg.Server.Environment, cfg.Webhook.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		cancelAnalyses()
		analyzeCtrl.Wait()
		log.Println("Server stopped")
		return err
	})

	return g.Wait()
}
