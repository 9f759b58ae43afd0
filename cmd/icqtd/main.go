package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/k-zaitsev/icqt/gateway"
	"github.com/k-zaitsev/icqt/store"
	"github.com/k-zaitsev/icqt/xmppstream"
)

func main() {
	debflag := flag.Bool("debug", false, "")
	componentAddr := flag.String("component-addr", "127.0.0.1:5347", "XMPP server's component port")
	domain := flag.String("domain", "icq.localhost", "Component domain this gateway answers on")
	secret := flag.String("secret", "", "Component handshake shared secret")
	adminJID := flag.String("admin-jid", "", "Bare JID allowed to run admin ad-hoc commands")
	httpAddr := flag.String("http-addr", ":8080", "Address for the /metrics endpoint")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05.000",
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	if *debflag {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	if *secret == "" {
		log.Fatal().Msg("-secret is required")
	}

	log.Info().Int("cpus", runtime.NumCPU()).Msg("Runtime")
	go httpServer(*httpAddr)

	conn, err := net.Dial("tcp", *componentAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *componentAddr).Msg("failed to dial component port")
	}

	comp := xmppstream.NewComponent(conn, *domain, *secret, log.Logger)
	st := store.NewMemory()

	var opts []gateway.Option
	if *adminJID != "" {
		opts = append(opts, gateway.WithAdminJID(*adminJID))
	}
	gw := gateway.New(comp, *domain, st, opts...)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		gw.Shutdown()
		_ = comp.Close()
		os.Exit(0)
	}()

	if err := comp.Open(); err != nil {
		log.Fatal().Err(err).Msg("failed to open component stream")
	}
	if err := comp.Run(gw.HandleStreamEvent); err != nil {
		log.Error().Err(err).Msg("component stream ended")
	}
}

func httpServer(address string) {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("Alive"))
	})
	log.Info().Msgf("Http server started address=%s", address)
	http.ListenAndServe(address, nil)
}
