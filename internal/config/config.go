package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Bind         string `yaml:"bind"`
	Port         int    `yaml:"port"`
	BodyLimitMB  int    `yaml:"body_limit_mb"`
	ReadTimeout  int    `yaml:"read_timeout_s"`
	WriteTimeout int    `yaml:"write_timeout_s"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type StoreConfig struct {
	Path           string `yaml:"path"`
	RetentionMode  string `yaml:"retention_mode"`
	RetentionDays  int    `yaml:"retention_days"`
	MaxTranscripts int    `yaml:"max_transcripts"`
	VacuumOnStart  bool   `yaml:"vacuum_on_start"`
}

type AudioConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	SpeechSampleRate int     `yaml:"speech_sample_rate"`
	MaxChunkSeconds  float64 `yaml:"max_chunk_seconds"`
	FFmpegCommand    string  `yaml:"ffmpeg_command"`
}

type TranscriberConfig struct {
	Mode           string `yaml:"mode"` // mock, gemini, openai
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_s"`
}

type SpeechConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"` // mock, gemini
	Model   string `yaml:"model"`
	Voice   string `yaml:"voice"`
	APIKey  string `yaml:"api_key"`
}

type AuthAccount struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Plan     string `yaml:"plan"`
}

type AuthConfig struct {
	Enabled     bool          `yaml:"enabled"`
	SigningKey  string        `yaml:"signing_key"`
	TokenTTLMin int           `yaml:"token_ttl_min"`
	Accounts    []AuthAccount `yaml:"accounts"`
}

type SubscriptionConfig struct {
	Enabled             bool `yaml:"enabled"`
	FreeSecondsPerMonth int  `yaml:"free_seconds_per_month"`
	ProSecondsPerMonth  int  `yaml:"pro_seconds_per_month"`
}

type Config struct {
	ServiceName  string             `yaml:"service_name"`
	Environment  string             `yaml:"environment"`
	HTTP         HTTPConfig         `yaml:"http"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Bus          BusConfig          `yaml:"bus"`
	Store        StoreConfig        `yaml:"store"`
	Audio        AudioConfig        `yaml:"audio"`
	Transcriber  TranscriberConfig  `yaml:"transcriber"`
	Speech       SpeechConfig       `yaml:"speech"`
	Auth         AuthConfig         `yaml:"auth"`
	Subscription SubscriptionConfig `yaml:"subscription"`
}

func Default() Config {
	return Config{
		ServiceName: "voxscribed",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:         "0.0.0.0",
			Port:         8080,
			BodyLimitMB:  32,
			ReadTimeout:  60,
			WriteTimeout: 120,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Store: StoreConfig{
			Path:           "./data/voxscribe.db",
			RetentionMode:  "persistent",
			RetentionDays:  0,
			MaxTranscripts: 10000,
		},
		Audio: AudioConfig{
			TargetSampleRate: 16000,
			SpeechSampleRate: 24000,
			MaxChunkSeconds:  300,
			FFmpegCommand:    "ffmpeg",
		},
		Transcriber: TranscriberConfig{
			Mode:           "mock",
			Model:          "gemini-2.5-flash",
			Language:       "",
			TimeoutSeconds: 120,
		},
		Speech: SpeechConfig{
			Enabled: true,
			Mode:    "mock",
			Model:   "gemini-2.5-flash-preview-tts",
			Voice:   "Kore",
		},
		Auth: AuthConfig{
			Enabled:     false,
			TokenTTLMin: 60,
		},
		Subscription: SubscriptionConfig{
			Enabled:             true,
			FreeSecondsPerMonth: 1800,
			ProSecondsPerMonth:  36000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "VOX_SERVICE_NAME")
	overrideString(&cfg.Environment, "VOX_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOX_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOX_HTTP_PORT")
	overrideInt(&cfg.HTTP.BodyLimitMB, "VOX_HTTP_BODY_LIMIT_MB")
	overrideString(&cfg.Telemetry.LogLevel, "VOX_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOX_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOX_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "VOX_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOX_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VOX_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOX_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOX_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOX_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOX_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOX_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Store.Path, "VOX_STORE_PATH")
	overrideString(&cfg.Store.RetentionMode, "VOX_STORE_RETENTION_MODE")
	overrideInt(&cfg.Store.RetentionDays, "VOX_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxTranscripts, "VOX_STORE_MAX_TRANSCRIPTS")
	overrideBool(&cfg.Store.VacuumOnStart, "VOX_STORE_VACUUM_ON_START")
	overrideInt(&cfg.Audio.TargetSampleRate, "VOX_AUDIO_TARGET_SAMPLE_RATE")
	overrideInt(&cfg.Audio.SpeechSampleRate, "VOX_AUDIO_SPEECH_SAMPLE_RATE")
	overrideFloat(&cfg.Audio.MaxChunkSeconds, "VOX_AUDIO_MAX_CHUNK_SECONDS")
	overrideString(&cfg.Audio.FFmpegCommand, "VOX_AUDIO_FFMPEG_COMMAND")
	overrideString(&cfg.Transcriber.Mode, "VOX_TRANSCRIBER_MODE")
	overrideString(&cfg.Transcriber.Model, "VOX_TRANSCRIBER_MODEL")
	overrideString(&cfg.Transcriber.Language, "VOX_TRANSCRIBER_LANGUAGE")
	overrideString(&cfg.Transcriber.APIKey, "VOX_TRANSCRIBER_API_KEY")
	overrideInt(&cfg.Transcriber.TimeoutSeconds, "VOX_TRANSCRIBER_TIMEOUT_S")
	overrideBool(&cfg.Speech.Enabled, "VOX_SPEECH_ENABLED")
	overrideString(&cfg.Speech.Mode, "VOX_SPEECH_MODE")
	overrideString(&cfg.Speech.Model, "VOX_SPEECH_MODEL")
	overrideString(&cfg.Speech.Voice, "VOX_SPEECH_VOICE")
	overrideString(&cfg.Speech.APIKey, "VOX_SPEECH_API_KEY")
	overrideBool(&cfg.Auth.Enabled, "VOX_AUTH_ENABLED")
	overrideString(&cfg.Auth.SigningKey, "VOX_AUTH_SIGNING_KEY")
	overrideInt(&cfg.Auth.TokenTTLMin, "VOX_AUTH_TOKEN_TTL_MIN")
	overrideBool(&cfg.Subscription.Enabled, "VOX_SUBSCRIPTION_ENABLED")
	overrideInt(&cfg.Subscription.FreeSecondsPerMonth, "VOX_SUBSCRIPTION_FREE_SECONDS_PER_MONTH")
	overrideInt(&cfg.Subscription.ProSecondsPerMonth, "VOX_SUBSCRIPTION_PRO_SECONDS_PER_MONTH")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.BodyLimitMB <= 0 {
		return errors.New("http.body_limit_mb must be positive")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else if len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when embedded mode is disabled")
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	switch cfg.Store.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Store.RetentionDays < 0 {
		return errors.New("store.retention_days must be >= 0")
	}
	if cfg.Audio.TargetSampleRate <= 0 {
		return errors.New("audio.target_sample_rate must be positive")
	}
	if cfg.Audio.SpeechSampleRate <= 0 {
		return errors.New("audio.speech_sample_rate must be positive")
	}
	if cfg.Audio.MaxChunkSeconds <= 0 {
		return errors.New("audio.max_chunk_seconds must be positive")
	}
	switch cfg.Transcriber.Mode {
	case "mock", "gemini", "openai":
	default:
		return errors.New("transcriber.mode must be one of mock|gemini|openai")
	}
	if cfg.Transcriber.Mode != "mock" && cfg.Transcriber.APIKey == "" {
		return errors.New("transcriber.api_key must be set unless mode=mock")
	}
	if cfg.Transcriber.TimeoutSeconds <= 0 {
		return errors.New("transcriber.timeout_s must be positive")
	}
	if cfg.Speech.Enabled {
		switch cfg.Speech.Mode {
		case "mock", "gemini":
		default:
			return errors.New("speech.mode must be one of mock|gemini")
		}
		if cfg.Speech.Mode == "gemini" && cfg.Speech.APIKey == "" && cfg.Transcriber.APIKey == "" {
			return errors.New("speech.api_key must be set when mode=gemini")
		}
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.SigningKey == "" {
			return errors.New("auth.signing_key must not be empty when auth is enabled")
		}
		if cfg.Auth.TokenTTLMin <= 0 {
			return errors.New("auth.token_ttl_min must be positive")
		}
	}
	if cfg.Subscription.Enabled {
		if cfg.Subscription.FreeSecondsPerMonth <= 0 {
			return errors.New("subscription.free_seconds_per_month must be positive")
		}
		if cfg.Subscription.ProSecondsPerMonth <= 0 {
			return errors.New("subscription.pro_seconds_per_month must be positive")
		}
	}
	return nil
}
