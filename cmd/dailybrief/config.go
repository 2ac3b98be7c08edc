package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/dailybrief/internal/logger"
	"github.com/nkiryanov/dailybrief/internal/service/summarizer"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	defaultListenAddr   = "localhost:8501"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultStorage      = StorageFile
	defaultDataDir      = ".dailybrief"
	defaultRedirectURL  = "http://localhost:8501/auth/callback"
	defaultNewsCountry  = "us"
	defaultCity         = "London"
	defaultTimezone     = "Local"
)

type Config struct {
	// Default logging level
	LogLevel string `validate:"oneof=debug info warn error"`

	// Address on which the dashboard will be run
	ListenAddr string `validate:"required,hostname_port"`

	// Environment (dev, prod)
	Environment string `validate:"oneof=dev prod"`

	// Secret key
	// Signs session cookies and encrypts stored credentials
	SecretKey string `validate:"required"`

	// Where credentials and pending authorizations are kept
	Storage string `validate:"oneof=file postgres memory"`

	// Database to connect to, used with postgres storage only
	DatabaseDSN string `validate:"required_if=Storage postgres"`

	// Directory for file storage
	DataDir string `validate:"required_if=Storage file"`

	// Google OAuth client: either secrets file or client id (and secret)
	ClientSecretsFile string
	ClientID          string `validate:"required_without=ClientSecretsFile"`
	ClientSecret      string
	RedirectURL       string `validate:"required,url"`

	NewsAPIKey  string
	NewsCountry string `validate:"required,len=2"`

	WeatherAPIKey string
	DefaultCity   string `validate:"required"`

	// IANA timezone name for the event window and all-day events
	Timezone string `validate:"required"`

	SummarizerToken string
	SummarizerURL   string `validate:"required,url"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		ListenAddr:    defaultListenAddr,
		Environment:   defaultEnvironment,
		Storage:       defaultStorage,
		DataDir:       defaultDataDir,
		RedirectURL:   defaultRedirectURL,
		NewsCountry:   defaultNewsCountry,
		DefaultCity:   defaultCity,
		Timezone:      defaultTimezone,
		SummarizerURL: summarizer.DefaultURL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":           setString(&c.ListenAddr),
		"LOG_LEVEL":             setString(&c.LogLevel),
		"ENVIRONMENT":           setString(&c.Environment),
		"SECRET_KEY":            setString(&c.SecretKey),
		"DATABASE_URI":          setString(&c.DatabaseDSN),
		"STORAGE":               setString(&c.Storage),
		"DATA_DIR":              setString(&c.DataDir),
		"GOOGLE_CLIENT_SECRETS": setString(&c.ClientSecretsFile),
		"GOOGLE_CLIENT_ID":      setString(&c.ClientID),
		"GOOGLE_CLIENT_SECRET":  setString(&c.ClientSecret),
		"REDIRECT_URL":          setString(&c.RedirectURL),
		"NEWS_API_KEY":          setString(&c.NewsAPIKey),
		"NEWS_COUNTRY":          setString(&c.NewsCountry),
		"WEATHER_API_KEY":       setString(&c.WeatherAPIKey),
		"DEFAULT_CITY":          setString(&c.DefaultCity),
		"TIMEZONE":              setString(&c.Timezone),
		"HUGGINGFACE_API_KEY":   setString(&c.SummarizerToken),
		"SUMMARIZER_URL":        setString(&c.SummarizerURL),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("dailybrief", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.Storage, "storage", c.Storage, "Credential storage (file, postgres, memory)")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory for file storage")
	fs.StringVar(&c.ClientSecretsFile, "client-secrets", c.ClientSecretsFile, "Google OAuth client secrets file")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "Google OAuth client id")
	fs.StringVar(&c.ClientSecret, "client-secret", c.ClientSecret, "Google OAuth client secret")
	fs.StringVar(&c.RedirectURL, "redirect-url", c.RedirectURL, "OAuth callback url")
	fs.StringVar(&c.NewsAPIKey, "news-api-key", c.NewsAPIKey, "NewsAPI key")
	fs.StringVar(&c.NewsCountry, "news-country", c.NewsCountry, "Country code for top headlines")
	fs.StringVar(&c.WeatherAPIKey, "weather-api-key", c.WeatherAPIKey, "OpenWeatherMap key")
	fs.StringVar(&c.DefaultCity, "city", c.DefaultCity, "Default city for weather")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "Timezone for calendar events")
	fs.StringVar(&c.SummarizerToken, "hf-token", c.SummarizerToken, "Hugging Face inference token")
	fs.StringVar(&c.SummarizerURL, "summarizer-url", c.SummarizerURL, "Summarization model url")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	err := v.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config. Err: %w", err)
	}
	return nil
}
