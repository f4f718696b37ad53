// Package config loads the crowdsale settings from the environment, with an
// optional .env file. Defaults reproduce the reference deployment: the sale
// opens one day after start-up and lasts thirty days, vesting starts at
// start-up with a 90 day cliff over 365 days.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"

	"api_crowdsale/internal/crowdsale"
	"api_crowdsale/internal/token"
)

// Config is the resolved process configuration.
type Config struct {
	Addr          string
	Administrator string

	StartTime       uint64
	EndTime         uint64
	Rate            uint64
	VestingStart    uint64
	CliffDuration   uint64
	VestingDuration uint64
	// VestingUnit of 0 means "same as Rate".
	VestingUnit uint64
	Delivery    crowdsale.DeliveryPolicy

	// TokenLedgerURL selects a remote ledger; empty runs an in-process token.
	TokenLedgerURL string
	// TokenLedgerCaller is the identity presented to the remote ledger, which
	// must be the administrator of the sale serving it. Defaults to Administrator.
	TokenLedgerCaller string
	TokenTimeout   time.Duration
	TokenSupply    *uint256.Int
	Reserve        *uint256.Int
	ReserveAccount string
}

// Load reads files (default ".env") if present, then the environment.
// now anchors the relative defaults.
func Load(now time.Time, files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	unix := uint64(now.Unix())
	cfg := &Config{
		Addr:           ":8081",
		Administrator:  os.Getenv("CROWDSALE_ADMIN"),
		TokenLedgerURL: os.Getenv("TOKEN_LEDGER_URL"),
		ReserveAccount: "crowdsale",
	}
	if v := os.Getenv("CROWDSALE_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.TokenLedgerCaller = cfg.Administrator
	if v := os.Getenv("TOKEN_LEDGER_CALLER"); v != "" {
		cfg.TokenLedgerCaller = v
	}
	if v := os.Getenv("CROWDSALE_RESERVE_ACCOUNT"); v != "" {
		cfg.ReserveAccount = v
	}

	var err error
	if cfg.StartTime, err = uintEnv("CROWDSALE_START", unix+crowdsale.Day); err != nil {
		return nil, err
	}
	if cfg.EndTime, err = uintEnv("CROWDSALE_END", cfg.StartTime+30*crowdsale.Day); err != nil {
		return nil, err
	}
	if cfg.Rate, err = uintEnv("CROWDSALE_RATE", crowdsale.DefaultRate); err != nil {
		return nil, err
	}
	if cfg.VestingStart, err = uintEnv("CROWDSALE_VESTING_START", unix); err != nil {
		return nil, err
	}
	if cfg.CliffDuration, err = uintEnv("CROWDSALE_CLIFF", 90*crowdsale.Day); err != nil {
		return nil, err
	}
	if cfg.VestingDuration, err = uintEnv("CROWDSALE_VESTING_DURATION", 365*crowdsale.Day); err != nil {
		return nil, err
	}
	if cfg.VestingUnit, err = uintEnv("CROWDSALE_VESTING_UNIT", 0); err != nil {
		return nil, err
	}
	if cfg.Delivery, err = crowdsale.ParseDeliveryPolicy(os.Getenv("CROWDSALE_DELIVERY")); err != nil {
		return nil, err
	}
	if cfg.TokenSupply, err = amountEnv("TOKEN_SUPPLY", token.FromTokens(1_000_000)); err != nil {
		return nil, err
	}
	if cfg.Reserve, err = amountEnv("CROWDSALE_RESERVE", token.FromTokens(200_000)); err != nil {
		return nil, err
	}

	cfg.TokenTimeout = 10 * time.Second
	if v := os.Getenv("TOKEN_LEDGER_TIMEOUT"); v != "" {
		if cfg.TokenTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("config: TOKEN_LEDGER_TIMEOUT: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the settings the sale cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Administrator == "":
		return errors.New("config: CROWDSALE_ADMIN is required")
	case c.StartTime >= c.EndTime:
		return fmt.Errorf("config: start time %d must be before end time %d", c.StartTime, c.EndTime)
	case c.Rate == 0:
		return errors.New("config: rate must be positive")
	case c.VestingDuration == 0:
		return errors.New("config: vesting duration must be positive")
	case c.CliffDuration > c.VestingDuration:
		return fmt.Errorf("config: cliff %d exceeds vesting duration %d", c.CliffDuration, c.VestingDuration)
	case c.TokenLedgerURL == "" && c.Reserve.Gt(c.TokenSupply):
		return fmt.Errorf("config: reserve %s exceeds token supply %s", c.Reserve.Dec(), c.TokenSupply.Dec())
	}
	return nil
}

// SaleOptions returns the crowdsale options implied by the config.
func (c *Config) SaleOptions() []crowdsale.Option {
	opts := []crowdsale.Option{
		crowdsale.WithRate(c.Rate),
		crowdsale.WithDeliveryPolicy(c.Delivery),
	}
	if c.VestingUnit != 0 {
		opts = append(opts, crowdsale.WithVestingUnit(c.VestingUnit))
	}
	return opts
}

func uintEnv(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func amountEnv(key string, def *uint256.Int) (*uint256.Int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := token.ParseAmount(v)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
