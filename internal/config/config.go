package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SlackBotToken string
	SlackAppToken string
	OpenAIAPIKey  string
	LogLevel      string
	LogFormat     string
	Environment   string
}

func Load() *Config {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	return &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		DatabaseURL:   getEnvOrDefault("DATABASE_URL", "postgres://localhost/askhub?sslmode=disable"),
		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken: os.Getenv("SLACK_APP_TOKEN"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "text"),
		Environment:   getEnvOrDefault("ENVIRONMENT", "development"),
	}
}

func (c *Config) Validate() error {
	var problems []string

	if c.SlackBotToken == "" {
		problems = append(problems, "SLACK_BOT_TOKEN is required")
	}

	if c.SlackAppToken == "" {
		problems = append(problems, "SLACK_APP_TOKEN is required")
	}

	if c.OpenAIAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}

	if c.SlackBotToken != "" && !strings.HasPrefix(c.SlackBotToken, "xoxb-") {
		problems = append(problems, "SLACK_BOT_TOKEN must start with 'xoxb-'")
	}

	if c.SlackAppToken != "" && !strings.HasPrefix(c.SlackAppToken, "xapp-") {
		problems = append(problems, "SLACK_APP_TOKEN must start with 'xapp-'")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		problems = append(problems, "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		problems = append(problems, "LOG_FORMAT must be one of: text, json")
	}

	if len(problems) > 0 {
		return errors.New(problems[0])
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
