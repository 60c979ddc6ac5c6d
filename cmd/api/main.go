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

	"github.com/joho/godotenv"

	"github.com/structai/structai/backend/internal/config"
	"github.com/structai/structai/backend/internal/handler"
	"github.com/structai/structai/backend/internal/render"
	"github.com/structai/structai/backend/internal/service/ai"
	"github.com/structai/structai/backend/internal/service/conversation"
	"github.com/structai/structai/backend/internal/service/query"
	"github.com/structai/structai/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Hydrate the conversation history from disk.
	historyStore := storage.NewFileStore(cfg.Storage.Path)
	historySvc := conversation.NewService(historyStore)
	if n := len(historySvc.Entries()); n > 0 {
		log.Printf("hydrated %d conversation entries from %s", n, cfg.Storage.Path)
	}

	// Diagram rendering pipeline.
	surface := render.NewSurface()
	renderer := render.NewRenderer(render.NewGraphvizEngine(), cfg.Diagram.Height, cfg.Diagram.CacheSize)
	if cfg.Diagram.Prewarm {
		go renderer.Prewarm(ctx)
	}

	// Tutor service and orchestrator, when model credentials are present.
	var tutorSvc *ai.Service
	var orch *query.Orchestrator
	if cfg.AI.Enabled() {
		tutorSvc, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize tutor service: %v", err)
			log.Println("continuing without question answering - check the Ark model environment variables")
		} else {
			orch = query.NewOrchestrator(tutorSvc, historySvc, renderer, surface)
			log.Println("tutor service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, question answering disabled")
	}

	router := handler.NewRouter(historySvc, orch, tutorSvc, renderer, surface)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("StructAI backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
