package config

import (
	"encoding/json"
	"log"
	"os"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" ou "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	Security struct {
		JwtSecret        string `json:"jwt_secret"`
		TokenTTLHours    int    `json:"token_ttl_hours"`
		PasswordMinChars int    `json:"password_min_chars"`
	} `json:"security"`

	Payments struct {
		// Provider seleciona a implementação de cobrança na inicialização:
		// "stripe" ou "mock". Nada de branch inline por dev-mode.
		Provider            string `json:"provider"`
		StripeSecretKey     string `json:"stripe_secret_key"`
		StripeWebhookSecret string `json:"stripe_webhook_secret"`
		PixKey              string `json:"pix_key"`
	} `json:"payments"`

	Ledger struct {
		DedupeWindowMinutes int `json:"dedupe_window_minutes"`
		CacheTTLSeconds     int `json:"cache_ttl_seconds"`
	} `json:"ledger"`
}

func Get(path string) Configuration {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var c Configuration
	if err := json.Unmarshal(b, &c); err != nil {
		log.Fatal(err)
	}

	// defaults (pra evitar nil/zero chato)
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Security.TokenTTLHours <= 0 {
		c.Security.TokenTTLHours = 24
	}
	if c.Security.PasswordMinChars <= 0 {
		c.Security.PasswordMinChars = 6
	}
	if c.Payments.Provider == "" {
		c.Payments.Provider = "mock"
	}
	if c.Ledger.DedupeWindowMinutes <= 0 {
		c.Ledger.DedupeWindowMinutes = 5
	}
	if c.Ledger.CacheTTLSeconds <= 0 {
		c.Ledger.CacheTTLSeconds = 5
	}

	return c
}
