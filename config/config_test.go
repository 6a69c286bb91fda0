package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigRequiresLLMKey(t *testing.T) {
	viper.Reset()
	t.Setenv("LLM_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without LLM_API_KEY")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("unexpected API key %q", cfg.LLM.APIKey)
	}
	if cfg.General.DefaultTimeout != 15*time.Second {
		t.Fatalf("unexpected default timeout %s", cfg.General.DefaultTimeout)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default model %q", cfg.LLM.Model)
	}
	if len(cfg.Market.Symbols) != 1 || cfg.Market.Symbols[0] != "REP.MC" {
		t.Fatalf("unexpected default symbols %v", cfg.Market.Symbols)
	}
	if cfg.Transit.AlertKeyword != "44" {
		t.Fatalf("unexpected default alert keyword %q", cfg.Transit.AlertKeyword)
	}
	if cfg.General.DryRun {
		t.Fatalf("dry run must default to off")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("TICKER_SYMBOLS", "rep.mc, SAN.MC")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.General.DryRun {
		t.Fatalf("DRY_RUN=true must enable dry run")
	}
	if len(cfg.Market.Symbols) != 2 || cfg.Market.Symbols[1] != "SAN.MC" {
		t.Fatalf("unexpected symbols %v", cfg.Market.Symbols)
	}
	if cfg.Channels.Telegram.Token != "tok" || cfg.Channels.Telegram.ChatID != "42" {
		t.Fatalf("unexpected telegram config %+v", cfg.Channels.Telegram)
	}
}
