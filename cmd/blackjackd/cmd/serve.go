package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/auth"
	"blackjack-lite/internal/config"
	"blackjack-lite/internal/gateway"
	"blackjack-lite/internal/httpapi"
	"blackjack-lite/internal/ledger"
	"blackjack-lite/internal/lobby"
	"blackjack-lite/internal/logging"
	"blackjack-lite/internal/table"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket game server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("auth-mode", auth.ModeJWT, "credential mode: jwt or insecure")
	f.Bool("auth-require", false, "reject connections without a credential")
	f.String("ledger-mode", ledger.ModeNoop, "round ledger: noop, sqlite, postgres or redis")
	f.Duration("bet-window", 15*time.Second, "betting window duration (0 deals on start)")
	f.Duration("turn-timeout", 30*time.Second, "per-turn timeout before auto-stand (0 disables)")
	f.Duration("round-end-delay", 5*time.Second, "delay between settlement and reset")
	f.Int("max-tables", 64, "maximum number of live tables (0 is unlimited)")
	f.String("log-level", "info", "log level")
	f.String("log-format", "json", "log format: json or console")
	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, authMode, err := auth.NewResolver(auth.Options{
		Mode:              cfg.AuthMode,
		JWTSecret:         cfg.AuthJWTSecret,
		JWTIssuer:         cfg.AuthJWTIssuer,
		IdentityClaim:     cfg.AuthIdentityClaim,
		Leeway:            5 * time.Second,
		RequireCredential: cfg.AuthRequire,
	})
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	ledgerService, ledgerMode, err := ledger.NewService(ctx, ledger.Options{
		Mode:        cfg.LedgerMode,
		SQLitePath:  cfg.LedgerSQLitePath,
		PostgresDSN: cfg.LedgerPostgresDSN,
		RedisURL:    cfg.LedgerRedisURL,
		RedisPrefix: cfg.LedgerRedisPrefix,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer ledgerService.Close()

	lby := lobby.New(lobby.Options{
		Table: table.Config{
			Game:            blackjack.DefaultConfig(),
			BetWindow:       cfg.BetWindow,
			TurnTimeout:     cfg.TurnTimeout,
			RoundEndDelay:   cfg.RoundEndDelay,
			OfflineSeatTTL:  cfg.OfflineSeatTTL,
			AutoOpenBetting: true,
		},
		MaxTables:    cfg.MaxTables,
		IdleTableTTL: cfg.IdleTableTTL,
		Ledger:       ledgerService,
		Logger:       logger,
	})
	defer lby.Close()
	go lby.Run(ctx, time.Minute)

	gw := gateway.New(lby, resolver, gateway.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	router := httpapi.NewRouter(httpapi.Deps{
		Lobby:             lby,
		WebSocket:         gw.HandleWebSocket,
		Auth:              resolver,
		Ledger:            ledgerService,
		AdminPasswordHash: cfg.AdminPasswordHash,
		AllowedOrigins:    cfg.AllowedOrigins,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("auth_mode", authMode),
			zap.String("ledger_mode", ledgerMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("connections", gw.Count()), zap.Strings("tables", lby.ListTables()))
	gw.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
