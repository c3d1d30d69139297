package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule struct {
		CheckTime    string        `yaml:"check_time"`
		PollInterval time.Duration `yaml:"poll_interval"`
		JobTimeout   time.Duration `yaml:"job_timeout"`
	} `yaml:"schedule"`
	News struct {
		APIKeyEnv     string        `yaml:"api_key_env"`
		APIBaseURL    string        `yaml:"api_base_url"`
		ScrapeBaseURL string        `yaml:"scrape_base_url"`
		Language      string        `yaml:"language"`
		Country       string        `yaml:"country"`
		MaxItems      int           `yaml:"max_items"`
		Timeout       time.Duration `yaml:"timeout"`
		Breaker       struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
			OpenTimeout         time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"news"`
	Fundamentals struct {
		Provider  string        `yaml:"provider"`
		Timeout   time.Duration `yaml:"timeout"`
		Universe  []string      `yaml:"universe"`
		APIKeyEnv string        `yaml:"api_key_env"`
		DART      struct {
			BaseURL    string `yaml:"base_url"`
			BusinessYr string `yaml:"business_year"`
			ReportCode string `yaml:"report_code"`
			Companies  []struct {
				CorpCode string `yaml:"corp_code"`
				Symbol   string `yaml:"symbol"`
				Name     string `yaml:"name"`
			} `yaml:"companies"`
		} `yaml:"dart"`
	} `yaml:"fundamentals"`
	Brokerage struct {
		BaseURL           string        `yaml:"base_url"`
		AppKeyEnv         string        `yaml:"app_key_env"`
		AppSecretEnv      string        `yaml:"app_secret_env"`
		AccountEnv        string        `yaml:"account_env"`
		ProductCode       string        `yaml:"product_code"`
		OrderType         string        `yaml:"order_type"`
		TrID              string        `yaml:"tr_id"`
		CustType          string        `yaml:"cust_type"`
		TokenTTL          time.Duration `yaml:"token_ttl"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
	} `yaml:"brokerage"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Journal struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"journal"`
}

// Default returns a config with every documented default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Schedule.CheckTime == "" {
		c.Schedule.CheckTime = "08:00"
	}
	if c.Schedule.PollInterval == 0 {
		c.Schedule.PollInterval = time.Second
	}
	if c.Schedule.JobTimeout == 0 {
		c.Schedule.JobTimeout = 10 * time.Second
	}

	if c.News.APIKeyEnv == "" {
		c.News.APIKeyEnv = "NEWS_API_KEY"
	}
	if c.News.APIBaseURL == "" {
		c.News.APIBaseURL = "https://newsapi.org"
	}
	if c.News.ScrapeBaseURL == "" {
		c.News.ScrapeBaseURL = "https://news.google.com"
	}
	if c.News.Language == "" {
		c.News.Language = "en"
	}
	if c.News.Country == "" {
		c.News.Country = "US"
	}
	if c.News.MaxItems == 0 {
		c.News.MaxItems = 3
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = 10 * time.Second
	}
	if c.News.Breaker.ConsecutiveFailures == 0 {
		c.News.Breaker.ConsecutiveFailures = 5
	}
	if c.News.Breaker.OpenTimeout == 0 {
		c.News.Breaker.OpenTimeout = time.Minute
	}

	if c.Fundamentals.Provider == "" {
		c.Fundamentals.Provider = "SAMPLE"
	}
	c.Fundamentals.Provider = strings.ToUpper(c.Fundamentals.Provider)
	if c.Fundamentals.Timeout == 0 {
		c.Fundamentals.Timeout = 10 * time.Second
	}
	if c.Fundamentals.APIKeyEnv == "" {
		c.Fundamentals.APIKeyEnv = "DART_API_KEY"
	}
	if c.Fundamentals.DART.BaseURL == "" {
		c.Fundamentals.DART.BaseURL = "https://opendart.fss.or.kr"
	}
	if c.Fundamentals.DART.ReportCode == "" {
		// annual business report
		c.Fundamentals.DART.ReportCode = "11011"
	}

	if c.Brokerage.BaseURL == "" {
		c.Brokerage.BaseURL = "https://openapivts.koreainvestment.com:29443"
	}
	if c.Brokerage.AppKeyEnv == "" {
		c.Brokerage.AppKeyEnv = "KIS_APP_KEY"
	}
	if c.Brokerage.AppSecretEnv == "" {
		c.Brokerage.AppSecretEnv = "KIS_APP_SECRET"
	}
	if c.Brokerage.AccountEnv == "" {
		c.Brokerage.AccountEnv = "KIS_ACCOUNT"
	}
	if c.Brokerage.ProductCode == "" {
		c.Brokerage.ProductCode = "01"
	}
	if c.Brokerage.OrderType == "" {
		// market order
		c.Brokerage.OrderType = "01"
	}
	if c.Brokerage.TrID == "" {
		// cash buy on the paper-trading host
		c.Brokerage.TrID = "VTTC0802U"
	}
	if c.Brokerage.CustType == "" {
		c.Brokerage.CustType = "P"
	}
	if c.Brokerage.TokenTTL == 0 {
		c.Brokerage.TokenTTL = 24 * time.Hour
	}
	if c.Brokerage.Timeout == 0 {
		c.Brokerage.Timeout = 10 * time.Second
	}
	if c.Brokerage.RequestsPerSecond == 0 {
		c.Brokerage.RequestsPerSecond = 5
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func (c *Config) Validate() error {
	if _, err := time.Parse("15:04", c.Schedule.CheckTime); err != nil {
		return fmt.Errorf("invalid schedule.check_time '%s': must be HH:MM", c.Schedule.CheckTime)
	}
	if c.Schedule.PollInterval < 0 || c.Schedule.JobTimeout < 0 {
		return errors.New("schedule intervals must be positive")
	}
	if c.News.MaxItems < 0 {
		return fmt.Errorf("news.max_items must be positive, got %d", c.News.MaxItems)
	}
	if c.News.Timeout < 0 || c.Brokerage.Timeout < 0 || c.Fundamentals.Timeout < 0 {
		return errors.New("timeouts must be positive")
	}
	switch c.Fundamentals.Provider {
	case "SAMPLE", "YAHOO", "DART":
	default:
		return fmt.Errorf("invalid fundamentals.provider '%s': must be 'SAMPLE', 'YAHOO' or 'DART'", c.Fundamentals.Provider)
	}
	if c.Fundamentals.Provider == "YAHOO" && len(c.Fundamentals.Universe) == 0 {
		return errors.New("fundamentals.universe cannot be empty for provider YAHOO")
	}
	if c.Fundamentals.Provider == "DART" && len(c.Fundamentals.DART.Companies) == 0 {
		return errors.New("fundamentals.dart.companies cannot be empty for provider DART")
	}
	if c.Brokerage.RequestsPerSecond < 0 {
		return fmt.Errorf("brokerage.requests_per_second must be positive, got %.2f", c.Brokerage.RequestsPerSecond)
	}
	return nil
}

// LoadConfig reads path; a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// Secrets resolved from the environment variables named in the config.
type Secrets struct {
	NewsAPIKey      string
	DARTAPIKey      string
	BrokerAppKey    string
	BrokerAppSecret string
	BrokerAccount   string
}

func (c *Config) Secrets() Secrets {
	return Secrets{
		NewsAPIKey:      os.Getenv(c.News.APIKeyEnv),
		DARTAPIKey:      os.Getenv(c.Fundamentals.APIKeyEnv),
		BrokerAppKey:    os.Getenv(c.Brokerage.AppKeyEnv),
		BrokerAppSecret: os.Getenv(c.Brokerage.AppSecretEnv),
		BrokerAccount:   os.Getenv(c.Brokerage.AccountEnv),
	}
}
