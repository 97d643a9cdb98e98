package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config carries everything the components need at construction time. It is
// built once in main and handed down; no package reads viper after Load.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	HTTPAddr string `mapstructure:"http_addr"`

	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"jwt"`

	SMS struct {
		Endpoint string `mapstructure:"endpoint"`
		APIKey   string `mapstructure:"api_key"`
		Sender   string `mapstructure:"sender"`
		Password string `mapstructure:"password"`
	} `mapstructure:"sms"`

	Paycool struct {
		Endpoint string `mapstructure:"endpoint"`
		Email    string `mapstructure:"email"`
	} `mapstructure:"paycool"`

	Stripe struct {
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"stripe"`

	Rates struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"rates"`

	// TransferMinimums maps currency code to the smallest transferable amount.
	// The single hardcoded "50" of older builds mispriced XAF transfers, so the
	// threshold is configurable per currency.
	TransferMinimums map[string]decimal.Decimal
	// CardMinimums maps currency code to the smallest card recharge amount.
	CardMinimums map[string]decimal.Decimal

	SupportedOperators  []string
	SupportedCurrencies []string
}

type rawLimits struct {
	Transfer map[string]string `mapstructure:"transfer_minimums"`
	Card     map[string]string `mapstructure:"card_minimums"`
}

// Load reads configs/config.yaml, letting environment variables override any
// key (viper.AutomaticEnv). Returns an explicit struct instead of exposing a
// process-wide settings object.
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath("./configs")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app_name", "PerfectPay")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("redis.addr", "127.0.0.1:6379")

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	var limits rawLimits
	if err := v.Unmarshal(&limits); err != nil {
		return nil, fmt.Errorf("unmarshal limits: %w", err)
	}
	cfg.TransferMinimums, _ = parseAmounts(limits.Transfer)
	cfg.CardMinimums, _ = parseAmounts(limits.Card)

	if len(cfg.TransferMinimums) == 0 {
		cfg.TransferMinimums = map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"EUR": decimal.NewFromInt(1),
			"XAF": decimal.NewFromInt(50),
		}
	}
	if len(cfg.CardMinimums) == 0 {
		cfg.CardMinimums = map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(5),
			"EUR": decimal.NewFromInt(5),
			"XAF": decimal.NewFromInt(500),
		}
	}
	if len(cfg.SupportedOperators) == 0 {
		cfg.SupportedOperators = []string{"ORANGE", "MTN"}
	}
	if len(cfg.SupportedCurrencies) == 0 {
		cfg.SupportedCurrencies = []string{"USD", "EUR", "XAF"}
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = v.GetString("DATABASE_URL")
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = v.GetString("JWT_SECRET")
	}

	return &cfg, nil
}

// TransferMinimum returns the configured floor for the currency, falling back
// to the XAF threshold for unknown codes so the check never silently passes.
func (c *Config) TransferMinimum(currency string) decimal.Decimal {
	if m, ok := c.TransferMinimums[currency]; ok {
		return m
	}
	return decimal.NewFromInt(50)
}

func (c *Config) CardMinimum(currency string) decimal.Decimal {
	if m, ok := c.CardMinimums[currency]; ok {
		return m
	}
	return decimal.NewFromInt(5)
}

func (c *Config) OperatorSupported(op string) bool {
	for _, o := range c.SupportedOperators {
		if o == op {
			return true
		}
	}
	return false
}

func parseAmounts(in map[string]string) (map[string]decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for ccy, s := range in {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("amount %q for %s: %w", s, ccy, err)
		}
		out[ccy] = d
	}
	return out, nil
}
