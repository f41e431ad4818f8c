// cmd/server/main.go
package main

import (
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/iPanja/ei-dungeon-server/internal/config"
	"github.com/iPanja/ei-dungeon-server/internal/handlers"
	"github.com/iPanja/ei-dungeon-server/internal/journal"
	"github.com/iPanja/ei-dungeon-server/internal/middleware"
	"github.com/iPanja/ei-dungeon-server/internal/relay"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	cfg := config.FromEnv()

	var j journal.Journal = journal.Nop{}
	if cfg.RedisAddr != "" {
		rj, err := journal.NewRedis(logger, cfg.RedisAddr, cfg.RedisDB, cfg.JournalQueue)
		if err != nil {
			log.Fatalf("failed to start event journal: %v", err)
		}
		defer rj.Close()
		j = rj
		logger.Infof("event journal enabled (%s -> %s)", cfg.RedisAddr, cfg.JournalQueue)
	}

	rly := relay.New(logger, j, cfg.StateSyncTimeout)

	mux := http.NewServeMux()
	mux.Handle("/", middleware.LogMiddleware(logger)(handlers.IndexHandler(cfg.ClientDir)))
	mux.HandleFunc("/healthz", handlers.PingHandler)
	mux.Handle("/ws", handlers.WSHandler(logger, rly, cfg))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}
}
