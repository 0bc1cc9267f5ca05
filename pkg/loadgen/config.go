package loadgen

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the synthetic load generator
type Config struct {
	// Market settings
	MarketSymbol string
	MidPrice     float64
	BandPercent  float64

	// Flow mix, each in percent of generated commands
	MarketPercent float64
	IOCPercent    float64
	FOKPercent    float64
	CancelPercent float64
	CrossPercent  float64

	// Sizing
	MaxOrderSize float64
	NumTraders   int

	// Reproducibility
	Seed     int64
	ClientID string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("MARKET_SYMBOL", "BTC-USD")
	v.SetDefault("MID_PRICE", 50000.0)
	v.SetDefault("BAND_PERCENT", 1.0)
	v.SetDefault("MARKET_ORDER_PERCENT", 10.0)
	v.SetDefault("IOC_PERCENT", 10.0)
	v.SetDefault("FOK_PERCENT", 5.0)
	v.SetDefault("CANCEL_PERCENT", 20.0)
	v.SetDefault("CROSS_PERCENT", 25.0)
	v.SetDefault("MAX_ORDER_SIZE", 5.0)
	v.SetDefault("NUM_TRADERS", 16)
	v.SetDefault("SEED", 42)
	v.SetDefault("CLIENT_ID", "load")

	// Allow environment variables
	v.AutomaticEnv()

	cfg := &Config{
		MarketSymbol:  v.GetString("MARKET_SYMBOL"),
		MidPrice:      v.GetFloat64("MID_PRICE"),
		BandPercent:   v.GetFloat64("BAND_PERCENT"),
		MarketPercent: v.GetFloat64("MARKET_ORDER_PERCENT"),
		IOCPercent:    v.GetFloat64("IOC_PERCENT"),
		FOKPercent:    v.GetFloat64("FOK_PERCENT"),
		CancelPercent: v.GetFloat64("CANCEL_PERCENT"),
		CrossPercent:  v.GetFloat64("CROSS_PERCENT"),
		MaxOrderSize:  v.GetFloat64("MAX_ORDER_SIZE"),
		NumTraders:    v.GetInt("NUM_TRADERS"),
		Seed:          v.GetInt64("SEED"),
		ClientID:      v.GetString("CLIENT_ID"),
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.MarketSymbol == "" {
		return fmt.Errorf("MARKET_SYMBOL must not be empty")
	}
	if cfg.MidPrice <= 0 {
		return fmt.Errorf("MID_PRICE must be positive")
	}
	if cfg.BandPercent <= 0 {
		return fmt.Errorf("BAND_PERCENT must be positive")
	}
	if cfg.MarketPercent < 0 || cfg.IOCPercent < 0 || cfg.FOKPercent < 0 {
		return fmt.Errorf("order type percentages must not be negative")
	}
	if cfg.MarketPercent+cfg.IOCPercent+cfg.FOKPercent > 100 {
		return fmt.Errorf("order type percentages must not exceed 100 combined")
	}
	if cfg.CancelPercent < 0 || cfg.CancelPercent >= 100 {
		return fmt.Errorf("CANCEL_PERCENT must be in [0, 100)")
	}
	if cfg.CrossPercent < 0 || cfg.CrossPercent > 100 {
		return fmt.Errorf("CROSS_PERCENT must be in [0, 100]")
	}
	if cfg.MaxOrderSize <= 0 {
		return fmt.Errorf("MAX_ORDER_SIZE must be positive")
	}
	if cfg.NumTraders <= 0 {
		return fmt.Errorf("NUM_TRADERS must be positive")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("CLIENT_ID must not be empty")
	}
	return nil
}
