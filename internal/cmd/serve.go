package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hireloop/portal-auth/internal/config"
	"github.com/hireloop/portal-auth/internal/server"
	"github.com/hireloop/portal-auth/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the portal auth HTTP API.

Configuration is read from the environment (and .env in development):
  JWT_SECRET        signing secret, required
  DB_DRIVER         sqlite or postgres
  DATABASE_URL      driver DSN
  REDIS_URL         optional, shares revoked tokens across instances

Example:
  JWT_SECRET=dev portal-auth serve --port 5000`,
	RunE: runServe,
}

var (
	servePort    string
	serveMigrate bool
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Create missing tables on start")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	logger := server.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if serveMigrate {
		if err := storage.Migrate(ctx, db); err != nil {
			return err
		}
	}

	opts := []server.Option{server.WithLogger(logger)}

	if cfg.Redis.Enabled() {
		rdb, err := storage.OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, server.WithRedis(rdb, cfg.Redis.Prefix))
		logger.Info("token revocations stored in redis")
	}

	app, err := server.New(cfg, db, opts...)
	if err != nil {
		return fmt.Errorf("wire server: %w", err)
	}

	return app.Listen(ctx, cfg.Addr())
}
