package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/diacast/diacast/internal/voices"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
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

// ProviderConfig controls the external text-to-speech collaborator.
type ProviderConfig struct {
	Mode             string `yaml:"mode"` // mock, openai
	APIKey           string `yaml:"api_key"`
	TTSModel         string `yaml:"tts_model"`
	GPTModel         string `yaml:"gpt_model"` // reserved, not used by the pipeline yet
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	MaxChunkChars    int    `yaml:"max_chunk_chars"`
	MaxRetries       int    `yaml:"max_retries"`
	Workers          int    `yaml:"workers"`
	CallTimeoutMS    int    `yaml:"call_timeout_ms"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
}

type SpeakersConfig struct {
	Speaker1Name      string  `yaml:"speaker1_name"`
	Speaker2Name      string  `yaml:"speaker2_name"`
	Speaker1Voice     string  `yaml:"speaker1_voice"`
	Speaker2Voice     string  `yaml:"speaker2_voice"`
	StrictAttribution bool    `yaml:"strict_attribution"`
	TurnGapSeconds    float64 `yaml:"turn_gap_seconds"`
}

type OutputConfig struct {
	Directory      string `yaml:"directory"`
	Format         string `yaml:"format"` // mp3, wav
	EncoderCommand string `yaml:"encoder_command"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEpisodes   int    `yaml:"max_episodes"`
}

type Config struct {
	ServiceName          string          `yaml:"service_name"`
	Environment          string          `yaml:"environment"`
	HTTP                 HTTPConfig      `yaml:"http"`
	Telemetry            TelemetryConfig `yaml:"telemetry"`
	Bus                  BusConfig       `yaml:"bus"`
	Provider             ProviderConfig  `yaml:"provider"`
	Speakers             SpeakersConfig  `yaml:"speakers"`
	Output               OutputConfig    `yaml:"output"`
	History              HistoryConfig   `yaml:"history"`
	DefaultLengthMinutes int             `yaml:"default_length_minutes"`
}

func Default() Config {
	return Config{
		ServiceName: "diacast",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Provider: ProviderConfig{
			Mode:             "openai",
			TTSModel:         "tts-1",
			GPTModel:         "gpt-4o-mini",
			SampleRate:       24000,
			Channels:         1,
			MaxChunkChars:    4000,
			MaxRetries:       3,
			Workers:          4,
			CallTimeoutMS:    45000,
			RequestTimeoutMS: 600000,
		},
		Speakers: SpeakersConfig{
			Speaker1Name:   "Alex",
			Speaker2Name:   "Jordan",
			Speaker1Voice:  "alloy",
			Speaker2Voice:  "nova",
			TurnGapSeconds: 0.5,
		},
		Output: OutputConfig{
			Directory:      "./podcasts",
			Format:         "mp3",
			EncoderCommand: "ffmpeg -y -hide_banner -loglevel error -f s16le -ar {rate} -ac {channels} -i pipe:0 -codec:a libmp3lame -qscale:a 4 -f mp3 {output}",
		},
		History: HistoryConfig{
			Path:          "./data/diacast-episodes.db",
			RetentionDays: 90,
			MaxEpisodes:   10000,
		},
		DefaultLengthMinutes: 10,
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
	overrideString(&cfg.ServiceName, "DIACAST_SERVICE_NAME")
	overrideString(&cfg.Environment, "DIACAST_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "DIACAST_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "DIACAST_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "DIACAST_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "DIACAST_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "DIACAST_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "DIACAST_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "DIACAST_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "DIACAST_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "DIACAST_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "DIACAST_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "DIACAST_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "DIACAST_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "DIACAST_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Provider.Mode, "DIACAST_PROVIDER_MODE")
	overrideString(&cfg.Provider.APIKey, "DIACAST_PROVIDER_API_KEY")
	overrideString(&cfg.Provider.TTSModel, "DIACAST_PROVIDER_TTS_MODEL")
	overrideString(&cfg.Provider.GPTModel, "DIACAST_PROVIDER_GPT_MODEL")
	overrideInt(&cfg.Provider.SampleRate, "DIACAST_PROVIDER_SAMPLE_RATE")
	overrideInt(&cfg.Provider.Channels, "DIACAST_PROVIDER_CHANNELS")
	overrideInt(&cfg.Provider.MaxChunkChars, "DIACAST_PROVIDER_MAX_CHUNK_CHARS")
	overrideInt(&cfg.Provider.MaxRetries, "DIACAST_PROVIDER_MAX_RETRIES")
	overrideInt(&cfg.Provider.Workers, "DIACAST_PROVIDER_WORKERS")
	overrideInt(&cfg.Provider.CallTimeoutMS, "DIACAST_PROVIDER_CALL_TIMEOUT_MS")
	overrideInt(&cfg.Provider.RequestTimeoutMS, "DIACAST_PROVIDER_REQUEST_TIMEOUT_MS")
	overrideString(&cfg.Speakers.Speaker1Name, "DIACAST_SPEAKER1_NAME")
	overrideString(&cfg.Speakers.Speaker2Name, "DIACAST_SPEAKER2_NAME")
	overrideString(&cfg.Speakers.Speaker1Voice, "DIACAST_SPEAKER1_VOICE")
	overrideString(&cfg.Speakers.Speaker2Voice, "DIACAST_SPEAKER2_VOICE")
	overrideBool(&cfg.Speakers.StrictAttribution, "DIACAST_STRICT_ATTRIBUTION")
	overrideFloat(&cfg.Speakers.TurnGapSeconds, "DIACAST_TURN_GAP_SECONDS")
	overrideString(&cfg.Output.Directory, "DIACAST_OUTPUT_DIRECTORY")
	overrideString(&cfg.Output.Format, "DIACAST_OUTPUT_FORMAT")
	overrideString(&cfg.Output.EncoderCommand, "DIACAST_OUTPUT_ENCODER_COMMAND")
	overrideString(&cfg.History.Path, "DIACAST_HISTORY_PATH")
	overrideInt(&cfg.History.RetentionDays, "DIACAST_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxEpisodes, "DIACAST_HISTORY_MAX_EPISODES")
	overrideInt(&cfg.DefaultLengthMinutes, "DIACAST_DEFAULT_LENGTH_MINUTES")

	// Bare env names kept for drop-in compatibility with earlier deployments.
	overrideString(&cfg.Provider.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.Provider.TTSModel, "OPENAI_TTS_MODEL")
	overrideString(&cfg.Provider.GPTModel, "OPENAI_GPT_MODEL")
	overrideString(&cfg.Speakers.Speaker1Name, "SPEAKER1_NAME")
	overrideString(&cfg.Speakers.Speaker2Name, "SPEAKER2_NAME")
	overrideString(&cfg.Speakers.Speaker1Voice, "SPEAKER1_VOICE")
	overrideString(&cfg.Speakers.Speaker2Voice, "SPEAKER2_VOICE")
	overrideInt(&cfg.DefaultLengthMinutes, "DEFAULT_PODCAST_LENGTH")
	overrideString(&cfg.Output.Directory, "OUTPUT_DIRECTORY")
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
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.Provider.Mode {
	case "mock", "openai":
	default:
		return errors.New("provider.mode must be one of mock|openai")
	}
	if cfg.Provider.Mode == "openai" && cfg.Provider.APIKey == "" {
		return errors.New("provider.api_key must be set (OPENAI_API_KEY)")
	}
	if cfg.Provider.TTSModel == "" {
		return errors.New("provider.tts_model must not be empty")
	}
	if cfg.Provider.SampleRate <= 0 {
		return errors.New("provider.sample_rate must be positive")
	}
	if cfg.Provider.Channels <= 0 {
		return errors.New("provider.channels must be positive")
	}
	if cfg.Provider.MaxChunkChars <= 0 {
		return errors.New("provider.max_chunk_chars must be positive")
	}
	if cfg.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries must be >= 0")
	}
	if cfg.Provider.Workers <= 0 {
		return errors.New("provider.workers must be >= 1")
	}
	if cfg.Speakers.Speaker1Name == "" || cfg.Speakers.Speaker2Name == "" {
		return errors.New("speakers.speaker1_name and speakers.speaker2_name must not be empty")
	}
	if cfg.Speakers.Speaker1Name == cfg.Speakers.Speaker2Name {
		return errors.New("speakers must have distinct names")
	}
	if !voices.IsSupported(cfg.Speakers.Speaker1Voice) {
		return fmt.Errorf("speakers.speaker1_voice %q is not a supported voice", cfg.Speakers.Speaker1Voice)
	}
	if !voices.IsSupported(cfg.Speakers.Speaker2Voice) {
		return fmt.Errorf("speakers.speaker2_voice %q is not a supported voice", cfg.Speakers.Speaker2Voice)
	}
	if cfg.Speakers.TurnGapSeconds < 0 {
		return errors.New("speakers.turn_gap_seconds must be >= 0")
	}
	if cfg.Output.Directory == "" {
		return errors.New("output.directory must not be empty")
	}
	switch cfg.Output.Format {
	case "mp3", "wav":
	default:
		return errors.New("output.format must be one of mp3|wav")
	}
	if cfg.Output.Format == "mp3" && cfg.Output.EncoderCommand == "" {
		return errors.New("output.encoder_command must be set when format=mp3")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.DefaultLengthMinutes < 1 || cfg.DefaultLengthMinutes > 60 {
		return errors.New("default_length_minutes must be between 1 and 60")
	}
	return nil
}
