package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"api_crowdsale/api"
	"api_crowdsale/internal/config"
	"api_crowdsale/internal/crowdsale"
	"api_crowdsale/internal/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crowdsale HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides CROWDSALE_ADDR)")
	serveCmd.Flags().String("env-file", ".env", "dotenv file to load before reading the environment")
	serveCmd.Flags().Bool("debug", false, "development logging and gin debug mode")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	envFile, _ := cmd.Flags().GetString("env-file")
	addr, _ := cmd.Flags().GetString("addr")

	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // flushes buffer, if any

	cfg, err := config.Load(time.Now(), envFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, cleanup, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("crowdsale listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error trying to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newEngine wires the token ledger, the sale and the routes. The returned
// cleanup releases the remote ledger client, if any.
func newEngine(cfg *config.Config, logger *zap.Logger) (*gin.Engine, func(), error) {
	var (
		ledger  crowdsale.TokenLedger
		reserve *token.Reserve
		cleanup = func() {}
	)

	if cfg.TokenLedgerURL != "" {
		client := token.NewClient(cfg.TokenLedgerURL, cfg.TokenLedgerCaller, cfg.TokenTimeout, logger)
		ledger = client
		cleanup = func() { _ = client.Close() }
		logger.Info("using remote token ledger", zap.String("url", cfg.TokenLedgerURL))
	} else {
		t, err := token.New("MyToken", "MTK", cfg.Administrator, cfg.TokenSupply, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := t.Transfer(cfg.Administrator, cfg.ReserveAccount, cfg.Reserve); err != nil {
			return nil, nil, fmt.Errorf("fund sale reserve: %w", err)
		}
		reserve = token.NewReserve(t, cfg.ReserveAccount)
		ledger = reserve
	}

	sale, err := crowdsale.New(crowdsale.Config{
		StartTime:       cfg.StartTime,
		EndTime:         cfg.EndTime,
		Administrator:   cfg.Administrator,
		Ledger:          ledger,
		CliffDuration:   cfg.CliffDuration,
		VestingStart:    cfg.VestingStart,
		VestingDuration: cfg.VestingDuration,
	}, append(cfg.SaleOptions(), crowdsale.WithLogger(logger))...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	api.InitRoutes(engine, sale, reserve, api.WallClock, logger)
	return engine, cleanup, nil
}
