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

	"github.com/greenprotect/fieldops/internal/services/dashboard"
)

func main() {
	cfg := loadConfig()

	svc := dashboard.NewService(dashboard.Config{
		AgentURL:   cfg.AgentURL,
		EventURL:   cfg.EventURL,
		Timeout:    time.Duration(cfg.TimeoutMs) * time.Millisecond,
		CBFails:    cfg.CBFails,
		CBOpenFor:  time.Duration(cfg.CBOpenMs) * time.Millisecond,
		CBInterval: time.Duration(cfg.CBIntervalMs) * time.Millisecond,
	})

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           dashboard.NewHTTPMux(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("dashboard listening on %s", hs.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("dashboard: shutting down...")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shCtx)
}
