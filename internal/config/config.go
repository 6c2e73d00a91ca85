// Package config loads the application configuration from a YAML file with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poggufanz/polymarket-sniper/internal/ratelimit"
	"github.com/poggufanz/polymarket-sniper/internal/scoring"
)

// Public Solana endpoints used when no Helius key is configured. The public
// RPC is heavily throttled; fine for dry runs, not for production.
const (
	publicRPCURL = "https://api.mainnet-beta.solana.com"
	publicWSURL  = "wss://api.mainnet-beta.solana.com"

	heliusRPCFormat = "https://mainnet.helius-rpc.com/?api-key=%s"
	heliusWSFormat  = "wss://mainnet.helius-rpc.com/?api-key=%s"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	Solana struct {
		HeliusAPIKey string `yaml:"helius_api_key"`
		RPCURL       string `yaml:"rpc_url"`
		WSURL        string `yaml:"ws_url"`
	} `yaml:"solana"`
	Narrative struct {
		VolumeFloorUSD float64 `yaml:"volume_floor_usd"`
		RefreshSpec    string  `yaml:"refresh"`
	} `yaml:"narrative"`
	Thresholds struct {
		MinLiquidityUSD     float64 `yaml:"min_liquidity_usd"`
		MaxPriceChange1hPct float64 `yaml:"max_1h_price_change_pct"`
		MaxTop10HolderPct   float64 `yaml:"max_top10_holder_pct"`
		MaxTokenAgeHours    float64 `yaml:"max_token_age_hours"`
		MinCompositeScore   float64 `yaml:"min_composite_score"`
		MinIndividualScore  float64 `yaml:"min_individual_score"`
	} `yaml:"thresholds"`
	Weights scoring.Weights `yaml:"weights"`
	Alerts  struct {
		MaxPerDay   int    `yaml:"max_per_day"`
		StateFile   string `yaml:"state_file"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"alerts"`
	RateLimits map[string]int `yaml:"rate_limits"`
	Metrics    struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	DryRun  bool `yaml:"dry_run"`
	Verbose bool `yaml:"verbose"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; everything can
// come from the environment.
func Load(path string) (*Config, error) {
	// .env is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("HELIUS_API_KEY"); v != "" {
		cfg.Solana.HeliusAPIKey = v
	}
	if v := os.Getenv("ALERTS_POSTGRES_DSN"); v != "" {
		cfg.Alerts.PostgresDSN = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash-lite"
	}
	if c.Narrative.VolumeFloorUSD == 0 {
		c.Narrative.VolumeFloorUSD = 100_000
	}
	if c.Narrative.RefreshSpec == "" {
		c.Narrative.RefreshSpec = "@every 60s"
	}
	if c.Thresholds.MinLiquidityUSD == 0 {
		c.Thresholds.MinLiquidityUSD = 5_000
	}
	if c.Thresholds.MaxPriceChange1hPct == 0 {
		c.Thresholds.MaxPriceChange1hPct = 50
	}
	if c.Thresholds.MaxTop10HolderPct == 0 {
		c.Thresholds.MaxTop10HolderPct = 50
	}
	if c.Thresholds.MaxTokenAgeHours == 0 {
		c.Thresholds.MaxTokenAgeHours = 24
	}
	if c.Thresholds.MinCompositeScore == 0 {
		c.Thresholds.MinCompositeScore = 70
	}
	if c.Thresholds.MinIndividualScore == 0 {
		c.Thresholds.MinIndividualScore = 40
	}
	if c.Weights == (scoring.Weights{}) {
		c.Weights = scoring.DefaultWeights()
	}
	if c.Alerts.MaxPerDay == 0 {
		c.Alerts.MaxPerDay = 3
	}
	if c.Alerts.StateFile == "" {
		c.Alerts.StateFile = "data/alert_state.json"
	}
	if c.RateLimits == nil {
		c.RateLimits = map[string]int{
			ratelimit.ServiceMarketData: 30,
			ratelimit.ServiceSecurity:   10,
			ratelimit.ServiceRPC:        20,
			ratelimit.ServiceLLM:        60,
			ratelimit.ServiceNarrative:  30,
		}
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9091"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if !c.DryRun {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required (set TELEGRAM_BOT_TOKEN)")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required (set TELEGRAM_CHAT_ID)")
		}
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (set GEMINI_API_KEY)")
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	for _, id := range []string{
		ratelimit.ServiceMarketData,
		ratelimit.ServiceSecurity,
		ratelimit.ServiceRPC,
		ratelimit.ServiceLLM,
		ratelimit.ServiceNarrative,
	} {
		if c.RateLimits[id] <= 0 {
			return fmt.Errorf("rate_limits.%s must be positive", id)
		}
	}
	return nil
}

// RPCEndpoint returns the JSON-RPC URL, preferring an explicit override,
// then Helius, then the public endpoint.
func (c *Config) RPCEndpoint() string {
	if c.Solana.RPCURL != "" {
		return c.Solana.RPCURL
	}
	if c.Solana.HeliusAPIKey != "" {
		return fmt.Sprintf(heliusRPCFormat, c.Solana.HeliusAPIKey)
	}
	return publicRPCURL
}

// WSEndpoint returns the websocket URL with the same precedence as
// RPCEndpoint.
func (c *Config) WSEndpoint() string {
	if c.Solana.WSURL != "" {
		return c.Solana.WSURL
	}
	if c.Solana.HeliusAPIKey != "" {
		return fmt.Sprintf(heliusWSFormat, c.Solana.HeliusAPIKey)
	}
	return publicWSURL
}
