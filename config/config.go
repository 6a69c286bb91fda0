package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the briefing pipeline
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Google   GoogleConfig   `mapstructure:"google"`
	Market   MarketConfig   `mapstructure:"market"`
	Transit  TransitConfig  `mapstructure:"transit"`
	Channels ChannelsConfig `mapstructure:"channels"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DryRun         bool          `mapstructure:"dry_run"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains the synthesis provider configuration
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// GoogleConfig contains Google Workspace credential settings
type GoogleConfig struct {
	CredentialsFile string   `mapstructure:"credentials_file"`
	TokenFile       string   `mapstructure:"token_file"`
	Scopes          []string `mapstructure:"scopes"`
}

// MarketConfig contains market data settings
type MarketConfig struct {
	Symbols       []string `mapstructure:"symbols"`
	NewsQuery     string   `mapstructure:"news_query"`
	QuoteEndpoint string   `mapstructure:"quote_endpoint"`
	NewsEndpoint  string   `mapstructure:"news_endpoint"`
	MaxNews       int      `mapstructure:"max_news"`
}

// TransitConfig contains transit bulletin scrape settings
type TransitConfig struct {
	IndexURL        string `mapstructure:"index_url"`
	BulletinPattern string `mapstructure:"bulletin_pattern"`
	ImagePattern    string `mapstructure:"image_pattern"`
	AlertKeyword    string `mapstructure:"alert_keyword"`
	ExcerptLimit    int    `mapstructure:"excerpt_limit"`
	PrimaryLang     string `mapstructure:"primary_lang"`
	SecondaryLang   string `mapstructure:"secondary_lang"`
}

// ChannelsConfig contains notification channel credentials
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
}

// TelegramConfig contains Telegram bot settings
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// PushoverConfig contains Pushover application settings
type PushoverConfig struct {
	UserKey  string `mapstructure:"user_key"`
	AppToken string `mapstructure:"app_token"`
}

// WhatsAppConfig contains Twilio WhatsApp settings
type WhatsAppConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	ToNumber   string `mapstructure:"to_number"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("daybrief_config")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("DAYBRIEF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional - defaults plus env are enough to run
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "INFO")
	viper.SetDefault("general.dry_run", false)
	viper.SetDefault("general.default_timeout", "15s")

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 2048)
	viper.SetDefault("llm.timeout", "30s")

	viper.SetDefault("google.credentials_file", "credentials.json")
	viper.SetDefault("google.token_file", "token.json")
	viper.SetDefault("google.scopes", []string{
		"https://www.googleapis.com/auth/calendar.readonly",
		"https://www.googleapis.com/auth/tasks.readonly",
		"https://www.googleapis.com/auth/gmail.readonly",
	})

	viper.SetDefault("market.symbols", []string{"REP.MC"})
	viper.SetDefault("market.news_query", "bolsa española")
	viper.SetDefault("market.quote_endpoint", "https://query1.finance.yahoo.com/v7/finance/quote")
	viper.SetDefault("market.news_endpoint", "https://news.google.com/rss/search")
	viper.SetDefault("market.max_news", 5)

	viper.SetDefault("transit.index_url", "https://tmpmurcia.es/ultima.asp")
	viper.SetDefault("transit.bulletin_pattern", "Cuerpo.asp?codigo=")
	viper.SetDefault("transit.image_pattern", "/fotos/noticias/")
	viper.SetDefault("transit.alert_keyword", "44")
	viper.SetDefault("transit.excerpt_limit", 500)
	viper.SetDefault("transit.primary_lang", "spa")
	viper.SetDefault("transit.secondary_lang", "eng")
}

// overrideFromEnv overrides configuration with environment variables
func overrideFromEnv() {
	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		viper.Set("llm.model", model)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		viper.Set("general.log_level", strings.ToUpper(level))
	}
	if dry := os.Getenv("DRY_RUN"); dry == "1" || strings.EqualFold(dry, "true") {
		viper.Set("general.dry_run", true)
	}

	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		viper.Set("channels.telegram.token", token)
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		viper.Set("channels.telegram.chat_id", chatID)
	}
	if user := os.Getenv("PUSHOVER_USER"); user != "" {
		viper.Set("channels.pushover.user_key", user)
	}
	if token := os.Getenv("PUSHOVER_TOKEN"); token != "" {
		viper.Set("channels.pushover.app_token", token)
	}
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		viper.Set("channels.whatsapp.account_sid", sid)
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		viper.Set("channels.whatsapp.auth_token", token)
	}
	if from := os.Getenv("TWILIO_FROM_NUMBER"); from != "" {
		viper.Set("channels.whatsapp.from_number", from)
	}
	if to := os.Getenv("WHATSAPP_PHONE"); to != "" {
		viper.Set("channels.whatsapp.to_number", to)
	}

	if symbols := os.Getenv("TICKER_SYMBOLS"); symbols != "" {
		parts := strings.Split(symbols, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		viper.Set("market.symbols", parts)
	}
	if query := os.Getenv("NEWS_QUERY"); query != "" {
		viper.Set("market.news_query", query)
	}
}

// validateConfig validates the configuration. A missing LLM API key is the
// single fatal setup error: every other gap degrades at run time.
func validateConfig(config *Config) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if config.General.DefaultTimeout <= 0 {
		return fmt.Errorf("general.default_timeout must be positive")
	}
	if config.Transit.AlertKeyword == "" {
		return fmt.Errorf("transit.alert_keyword must not be empty")
	}
	return nil
}
