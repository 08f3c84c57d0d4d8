package config

import (
	"fmt"
	"strings"
	"time"

	"blackjack-lite/internal/auth"
	"blackjack-lite/internal/ledger"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. BLACKJACK_ADDR.
const EnvPrefix = "BLACKJACK"

// Keys bound from flags and environment.
const (
	KeyAddr              = "addr"
	KeyAuthMode          = "auth_mode"
	KeyAuthJWTSecret     = "auth_jwt_secret"
	KeyAuthJWTIssuer     = "auth_jwt_issuer"
	KeyAuthIdentityClaim = "auth_identity_claim"
	KeyAuthRequire       = "auth_require"
	KeyLedgerMode        = "ledger_mode"
	KeyLedgerSQLitePath  = "ledger_sqlite_path"
	KeyLedgerPostgresDSN = "ledger_postgres_dsn"
	KeyLedgerRedisURL    = "ledger_redis_url"
	KeyLedgerRedisPrefix = "ledger_redis_prefix"
	KeyBetWindow         = "bet_window"
	KeyTurnTimeout       = "turn_timeout"
	KeyRoundEndDelay     = "round_end_delay"
	KeyOfflineSeatTTL    = "offline_seat_ttl"
	KeyIdleTableTTL      = "idle_table_ttl"
	KeyMaxTables         = "max_tables"
	KeyAdminPasswordHash = "admin_password_hash"
	KeyAllowedOrigins    = "allowed_origins"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
)

type Config struct {
	Addr string

	AuthMode          string
	AuthJWTSecret     string
	AuthJWTIssuer     string
	AuthIdentityClaim string
	AuthRequire       bool

	LedgerMode        string
	LedgerSQLitePath  string
	LedgerPostgresDSN string
	LedgerRedisURL    string
	LedgerRedisPrefix string

	BetWindow      time.Duration
	TurnTimeout    time.Duration
	RoundEndDelay  time.Duration
	OfflineSeatTTL time.Duration
	IdleTableTTL   time.Duration
	MaxTables      int

	AdminPasswordHash string
	AllowedOrigins    []string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyAuthMode, auth.ModeJWT)
	v.SetDefault(KeyAuthJWTIssuer, "")
	v.SetDefault(KeyAuthIdentityClaim, "sub")
	v.SetDefault(KeyAuthRequire, false)
	v.SetDefault(KeyLedgerMode, ledger.ModeNoop)
	v.SetDefault(KeyLedgerRedisPrefix, "blackjack")
	v.SetDefault(KeyBetWindow, 15*time.Second)
	v.SetDefault(KeyTurnTimeout, 30*time.Second)
	v.SetDefault(KeyRoundEndDelay, 5*time.Second)
	v.SetDefault(KeyOfflineSeatTTL, 2*time.Minute)
	v.SetDefault(KeyIdleTableTTL, 10*time.Minute)
	v.SetDefault(KeyMaxTables, 64)
	v.SetDefault(KeyAllowedOrigins, "*")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load reads a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:              strings.TrimSpace(v.GetString(KeyAddr)),
		AuthMode:          strings.ToLower(strings.TrimSpace(v.GetString(KeyAuthMode))),
		AuthJWTSecret:     v.GetString(KeyAuthJWTSecret),
		AuthJWTIssuer:     strings.TrimSpace(v.GetString(KeyAuthJWTIssuer)),
		AuthIdentityClaim: strings.TrimSpace(v.GetString(KeyAuthIdentityClaim)),
		AuthRequire:       v.GetBool(KeyAuthRequire),
		LedgerMode:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLedgerMode))),
		LedgerSQLitePath:  strings.TrimSpace(v.GetString(KeyLedgerSQLitePath)),
		LedgerPostgresDSN: strings.TrimSpace(v.GetString(KeyLedgerPostgresDSN)),
		LedgerRedisURL:    strings.TrimSpace(v.GetString(KeyLedgerRedisURL)),
		LedgerRedisPrefix: strings.TrimSpace(v.GetString(KeyLedgerRedisPrefix)),
		BetWindow:         v.GetDuration(KeyBetWindow),
		TurnTimeout:       v.GetDuration(KeyTurnTimeout),
		RoundEndDelay:     v.GetDuration(KeyRoundEndDelay),
		OfflineSeatTTL:    v.GetDuration(KeyOfflineSeatTTL),
		IdleTableTTL:      v.GetDuration(KeyIdleTableTTL),
		MaxTables:         v.GetInt(KeyMaxTables),
		AdminPasswordHash: strings.TrimSpace(v.GetString(KeyAdminPasswordHash)),
		AllowedOrigins:    splitList(v.GetString(KeyAllowedOrigins)),
		LogLevel:          strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFormat:         strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	switch c.AuthMode {
	case auth.ModeJWT, "bearer":
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("%s_%s is required in %s auth mode", EnvPrefix, strings.ToUpper(KeyAuthJWTSecret), auth.ModeJWT)
		}
	case auth.ModeInsecure, "dev", "none":
	default:
		return fmt.Errorf("invalid auth mode %q", c.AuthMode)
	}
	switch c.LedgerMode {
	case "", ledger.ModeNoop, "memory", ledger.ModeSQLite, "local", ledger.ModePostgres, "postgresql", ledger.ModeRedis:
	default:
		return fmt.Errorf("invalid ledger mode %q", c.LedgerMode)
	}
	for name, d := range map[string]time.Duration{
		KeyBetWindow:      c.BetWindow,
		KeyTurnTimeout:    c.TurnTimeout,
		KeyRoundEndDelay:  c.RoundEndDelay,
		KeyOfflineSeatTTL: c.OfflineSeatTTL,
		KeyIdleTableTTL:   c.IdleTableTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	if c.MaxTables < 0 {
		return fmt.Errorf("max_tables must not be negative, got %d", c.MaxTables)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
