package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath       string
	OutputDir    string
	SettingsPath string

	GitHubAPIBaseURL   string
	GitHubToken        string
	GitHubTimeoutMs    int
	GitHubRateLimitRPS int

	LogLevel  string
	LogFormat string

	OfferCodeField  string
	ExportSheetName string

	WatchOfferPath   string
	WatchIntervalSec int
	WatchAutoExport  bool
	WatchMailSource  string

	InboxDir     string
	MailLabel    string
	MailFetchMax int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:       getEnv("DB_PATH", filepath.Join(cwd, "data", "assignatures.db")),
		OutputDir:    getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		SettingsPath: getEnv("SETTINGS_PATH", filepath.Join(cwd, "data", "github-settings.json")),

		GitHubAPIBaseURL:   getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubTimeoutMs:    getEnvInt("GITHUB_TIMEOUT_MS", 30000),
		GitHubRateLimitRPS: getEnvInt("GITHUB_RATE_LIMIT_RPS", 5),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "auto"),

		OfferCodeField:  getEnv("OFFER_CODE_FIELD", "codi"),
		ExportSheetName: getEnv("EXPORT_SHEET_NAME", "Assignatures"),

		WatchOfferPath:   getEnv("WATCH_OFFER_PATH", ""),
		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 3600),
		WatchAutoExport:  getEnvBool("WATCH_AUTO_EXPORT", true),
		WatchMailSource:  getEnv("WATCH_MAIL_SOURCE", ""),

		InboxDir:     getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		MailLabel:    getEnv("MAIL_LABEL", "INBOX"),
		MailFetchMax: getEnvInt("MAIL_FETCH_MAX", 20),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
