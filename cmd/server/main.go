package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tyr/internal/engine"
	"tyr/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Address to listen on")
	port := flag.Int("port", 9001, "Port to listen on")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the matching engine and the TCP server in front of it.
	book := engine.New()
	srv := net.New(*address, *port, book)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()

	// Joins the day-order reaper.
	if err := book.Close(); err != nil {
		log.Error().Err(err).Msg("engine shutdown")
	}
}
