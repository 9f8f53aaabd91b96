package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/server"
	"github.com/askdb/askdb/internal/service"
	"github.com/askdb/askdb/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the askdb API server",
		Long:  "Start the HTTP server that exposes the chat, query, schema, and session APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(dev bool) error {
	cfg := config.Load(viper.GetViper())
	logger := newLogger(dev)

	stack := buildStack(cfg, logger)

	sweeper, err := session.NewSweeper(stack.Sessions, cfg.SweepSchedule, logger)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	authSvc := service.NewAuthService(cfg.AdminToken, cfg.JWTSecret, cfg.JWTTTL)
	if !authSvc.Enabled() {
		logger.Warn("no admin token configured - admin endpoints disabled")
	}

	srv := server.New(server.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		CORSOrigins:       cfg.CORSOrigins,
		RequestsPerMinute: cfg.RateLimit,
	}, stack.Orch, stack.Registry, authSvc, logger)

	return srv.ListenAndServe()
}
