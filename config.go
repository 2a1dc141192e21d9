package main

import (
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

const envPrefix = "ROFLAMOUNTS_"

type Config struct {
	// Print debug level log messages to console.
	EnableDebugLog bool
	// Created quotes are saved in this database.
	DatabasePath string
	// Listen address for HTTP server.
	ListenAddress string
	// Optional TLS certificate and key if you want to serve over HTTPS.
	CertFile, KeyFile string
	// Origins allowed to call the API from a browser. Empty allows all origins.
	AllowedOrigins []string
	// Secret for signing quote tokens. You can generate a new one with -secret flag.
	Secret string
	// Number of decimals of the token. Base units are 10^-TokenDecimals of a token.
	TokenDecimals int32
	// Displayed next to token amounts.
	TokenSymbol string
	// Quotes are valid for this duration after creation.
	QuoteDuration time.Duration
	// Quotes with more terms than this are rejected.
	MaxTerms decimal.Decimal
	// On shutdown of the server, give some time to unfinished HTTP requests before shutting down the server.
	ShutdownTimeout time.Duration
	// Limit quote creation requests to prevent DOS attack.
	RateLimit string
	// Password for accessing admin endpoints.
	// Admin endpoints are protected with HTTP basic auth. Username is always "admin".
	// If no password is set, admin endpoints are disabled.
	AdminPassword string
	// Coinmarketcap API Key for getting the price conversion for fiat moneys.
	CoinmarketcapAPIKey string
	// Coinmarketcap ID of the token.
	CoinmarketcapCoinID string
	// Timeout for HTTP requests made to Coinmarketcap
	CoinmarketcapRequestTimeout time.Duration
	// Cache price value for a duration
	CoinmarketcapCacheDuration time.Duration
}

var DefaultConfig = Config{
	DatabasePath:                "rofl-amounts.db",
	ListenAddress:               "127.0.0.1:8080",
	TokenDecimals:               18,
	TokenSymbol:                 "ROSE",
	QuoteDuration:               time.Hour,
	MaxTerms:                    decimal.New(1000, 0),
	ShutdownTimeout:             5 * time.Second,
	RateLimit:                   "60-H",
	CoinmarketcapCoinID:         "7653",
	CoinmarketcapRequestTimeout: 10 * time.Second,
	CoinmarketcapCacheDuration:  time.Minute,
}

func (c *Config) Read() (err error) {
	*c = DefaultConfig
	k := koanf.New(".")
	var parser koanf.Parser
	ext := filepath.Ext(*configPath)
	if ext == ".yaml" || ext == ".yml" {
		parser = yaml.Parser()
	} else {
		parser = toml.Parser()
	}
	err = k.Load(file.Provider(*configPath), parser)
	if err != nil {
		return
	}
	err = k.Load(env.Provider(envPrefix, ".", envToKey), nil)
	if err != nil {
		return
	}
	conf := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				StringToDecimalHookFunc(),
				Float64ToDecimalHookFunc(),
				Int64ToDecimalHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           c,
		},
	}
	err = k.UnmarshalWithConf("", c, conf)
	return
}

// envToKey maps ROFLAMOUNTS_TOKENDECIMALS to TokenDecimals so that environment
// variables override the same key loaded from the config file.
func envToKey(s string) string {
	name := strings.TrimPrefix(s, envPrefix)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, name) {
			return t.Field(i).Name
		}
	}
	return name
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func StringToDecimalHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != decimalType {
			return data, nil
		}
		return decimal.NewFromString(data.(string))
	}
}

func Float64ToDecimalHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.Float64 || t != decimalType {
			return data, nil
		}
		return decimal.NewFromFloat(data.(float64)), nil
	}
}

// TOML integers are decoded as int64.
func Int64ToDecimalHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.Int64 || t != decimalType {
			return data, nil
		}
		return decimal.New(data.(int64), 0), nil
	}
}
