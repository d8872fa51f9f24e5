package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docchat/internal/dashboard"
	"github.com/ziadkadry99/docchat/internal/logging"
	"github.com/ziadkadry99/docchat/internal/markdown"
	"github.com/ziadkadry99/docchat/internal/server"
	"github.com/ziadkadry99/docchat/internal/transcript"
)

var (
	serverPort  int
	serverTitle string
)

const sweepInterval = time.Minute

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the document chat web app",
	Long:  `Starts the docchat web server: the chat page at /, its WebSocket at /ws/chat and the JSON session API under /api/sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			RequestTimeout: time.Duration(cfg.Timeouts.Retries+1) * (cfg.Timeouts.Search + cfg.Timeouts.Completion),
		}, logging.Component(log, "http"))

		dash := dashboard.New(a.sessions, a.controller, markdown.NewRenderer(), serverTitle, logging.Component(log, "dashboard"))
		dash.RegisterRoutes(srv.Router(), srv.Timeout())
		if a.transcript != nil {
			transcript.RegisterRoutes(srv.Router(), a.transcript)
		}

		go a.sessions.RunSweeper(ctx, sweepInterval, func(ids []string) {
			log.Info().Int("sessions", len(ids)).Msg("evicted idle sessions")
			dash.Evicted(ids)
		})

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown")
			}
		}()

		log.Info().
			Str("version", Version).
			Int("port", cfg.Server.Port).
			Str("search", string(cfg.Search.Backend)).
			Str("deployment", cfg.Chat.Deployment).
			Str("history_policy", string(cfg.Chat.HistoryPolicy)).
			Bool("transcript", a.transcript != nil).
			Msg("docchat server starting")

		return srv.Start()
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides server.port)")
	serverCmd.Flags().StringVar(&serverTitle, "title", "Document Chat", "page title")
	rootCmd.AddCommand(serverCmd)
}
