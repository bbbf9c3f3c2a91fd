// Package server serves suggestions from a dictionary over HTTP: a small
// HTML search page, a JSON endpoint and a websocket for live completion.
package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/justinas/alice"
)

// Searcher is the query side of a dictionary. *ptdict.Dictionary implements it.
type Searcher interface {
	Suggest(prefix string, limit int) ([]string, error)
}

type Config struct {
	Addr string
	// MinPrefix is the minimum number of characters a query must have.
	MinPrefix int
	// Limit caps the number of words returned for one query, 0 for no cap.
	Limit int
}

type Server struct {
	cfg  Config
	dict Searcher
	log  logger.Logger
	home *template.Template
}

func New(cfg Config, dict Searcher, log logger.Logger) *Server {
	return &Server{
		cfg:  cfg,
		dict: dict,
		log:  log,
		home: template.Must(template.New("home").Parse(homeTemplate)),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	dynamic := alice.New(noSurf)

	mux.Handle("GET /{$}", dynamic.ThenFunc(s.homePage))
	mux.Handle("POST /{$}", dynamic.ThenFunc(s.search))

	mux.HandleFunc("GET /suggest", s.suggestJSON)
	mux.HandleFunc("GET /ws", s.serveWS)

	standard := alice.New(s.recoverPanic, s.logRequest, commonHeaders)

	return standard.Then(mux)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.log.Infof("starting server on %s", s.cfg.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
