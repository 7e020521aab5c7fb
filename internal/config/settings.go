package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ytget/yt-bot/internal/messages"
	"github.com/ytget/yt-bot/internal/stats"
)

// EnvPrefix is prepended to every environment override, e.g. YTBOT_LOG_LEVEL
const EnvPrefix = "YTBOT"

// Settings keys
const (
	KeyTelegramToken   = "telegram.token"
	KeyTelegramTimeout = "telegram.request_timeout"
	KeyTempDir         = "storage.temp_dir"
	KeyMaxFileSizeMB   = "delivery.max_file_size_mb"
	KeyProbeTimeout    = "probe.timeout"
	KeyFetchTimeout    = "fetch.timeout"
	KeyYtdlpExecutable = "ytdlp.executable"
	KeyYtdlpInstall    = "ytdlp.auto_install"
	KeyFFmpegPath      = "ffmpeg.path"
	KeyFFprobePath     = "ffmpeg.ffprobe_path"
	KeyTranscode       = "ffmpeg.enabled"
	KeyAudioFormat     = "audio.format"
	KeyAudioQuality    = "audio.quality"
	KeyLanguage        = "bot.language"
	KeyIdleHorizon     = "session.idle_horizon"
	KeyJanitorInterval = "session.janitor_interval"
	KeyRateLimit       = "limits.downloads_per_hour"
	KeyAdminIDs        = "admin.ids"
	KeyStatsBackend    = "stats.backend"
	KeyRedisURL        = "redis.url"
	KeyRedisPrefix     = "redis.key_prefix"
	KeyHTTPAddr        = "http.addr"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyLogOutput       = "log.output"
	KeyLogFile         = "log.file"
)

// Default values
const (
	DefaultTempDir         = "temp_downloads"
	DefaultTelegramTimeout = 5 * time.Minute
	DefaultMaxFileSizeMB   = 50
	DefaultProbeTimeout    = 60 * time.Second
	DefaultFetchTimeout    = 600 * time.Second
	DefaultAudioFormat     = "mp3"
	DefaultAudioQuality    = "192"
	DefaultLanguage        = "system"
	DefaultIdleHorizon     = 30 * time.Minute
	DefaultJanitorInterval = time.Minute
	DefaultRateLimit       = stats.DefaultLimitPerHour
	DefaultStatsBackend    = stats.BackendMemory
	DefaultRedisPrefix     = stats.DefaultKeyPrefix
	DefaultHTTPAddr        = ":9090"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLogOutput       = "stdout"
	DefaultLogFile         = "logs/yt-bot.log"
)

// Bounds applied by the normalisers
const (
	MaxFileSizeMBLimit = 2000
	MinTimeout         = time.Second
	MaxFetchTimeout    = 2 * time.Hour
	// Bot API requests include 60s long polls
	MinTelegramTimeout = 90 * time.Second
	MaxTelegramTimeout = 30 * time.Minute
)

// ErrMissingToken is returned by Validate when no bot token is configured
var ErrMissingToken = errors.New("telegram bot token is not configured")

// Settings manages application configuration backed by viper
type Settings struct {
	v *viper.Viper
}

// Load reads .env, an optional config file and YTBOT_* environment
// variables. An empty path searches ./config and the working directory for
// config.{yaml,json,toml}; a missing file is not an error.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the original deployment scripts
	_ = v.BindEnv(KeyTelegramToken, EnvPrefix+"_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv(KeyRedisURL, EnvPrefix+"_REDIS_URL", "REDIS_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Settings{v: v}, nil
}

// NewSettings wraps an existing viper instance, applying defaults
func NewSettings(v *viper.Viper) *Settings {
	setDefaults(v)
	return &Settings{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTempDir, DefaultTempDir)
	v.SetDefault(KeyTelegramTimeout, DefaultTelegramTimeout)
	v.SetDefault(KeyMaxFileSizeMB, DefaultMaxFileSizeMB)
	v.SetDefault(KeyProbeTimeout, DefaultProbeTimeout)
	v.SetDefault(KeyFetchTimeout, DefaultFetchTimeout)
	v.SetDefault(KeyYtdlpInstall, false)
	v.SetDefault(KeyTranscode, true)
	v.SetDefault(KeyAudioFormat, DefaultAudioFormat)
	v.SetDefault(KeyAudioQuality, DefaultAudioQuality)
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyIdleHorizon, DefaultIdleHorizon)
	v.SetDefault(KeyJanitorInterval, DefaultJanitorInterval)
	v.SetDefault(KeyRateLimit, DefaultRateLimit)
	v.SetDefault(KeyStatsBackend, DefaultStatsBackend)
	v.SetDefault(KeyRedisPrefix, DefaultRedisPrefix)
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyLogOutput, DefaultLogOutput)
	v.SetDefault(KeyLogFile, DefaultLogFile)
}

// Validate checks settings required to run the bot
func (s *Settings) Validate() error {
	if s.GetTelegramToken() == "" {
		return ErrMissingToken
	}
	if _, err := s.GetAdminIDs(); err != nil {
		return err
	}
	if _, ok := s.GetLanguageOptions()[s.GetLanguage()]; !ok {
		return fmt.Errorf("unsupported %s %q", KeyLanguage, s.GetLanguage())
	}
	switch s.GetStatsBackend() {
	case stats.BackendMemory:
	case stats.BackendRedis:
		if s.GetRedisURL() == "" {
			return fmt.Errorf("stats backend is redis but %s is empty", KeyRedisURL)
		}
	default:
		return fmt.Errorf("unknown stats backend %q", s.GetStatsBackend())
	}
	return nil
}

// ConfigFile returns the config file in use, empty if none
func (s *Settings) ConfigFile() string {
	return s.v.ConfigFileUsed()
}

// Set overrides a key, e.g. from a command line flag
func (s *Settings) Set(key string, value any) {
	s.v.Set(key, value)
}

// GetTelegramToken returns the bot API token
func (s *Settings) GetTelegramToken() string {
	return strings.TrimSpace(s.v.GetString(KeyTelegramToken))
}

// GetTelegramTimeout returns the HTTP timeout for Bot API requests, uploads included
func (s *Settings) GetTelegramTimeout() time.Duration {
	return clampDuration(s.v.GetDuration(KeyTelegramTimeout), DefaultTelegramTimeout, MinTelegramTimeout, MaxTelegramTimeout)
}

// GetTempDir returns the root directory for session work directories
func (s *Settings) GetTempDir() string {
	dir := strings.TrimSpace(s.v.GetString(KeyTempDir))
	if dir == "" {
		return DefaultTempDir
	}
	return dir
}

// GetMaxFileSizeMB returns the deliverable size limit clamped to [1, MaxFileSizeMBLimit]
func (s *Settings) GetMaxFileSizeMB() int {
	value := s.v.GetInt(KeyMaxFileSizeMB)
	if value <= 0 {
		return DefaultMaxFileSizeMB
	}
	if value > MaxFileSizeMBLimit {
		return MaxFileSizeMBLimit
	}
	return value
}

// GetMaxFileSizeBytes returns the deliverable size limit in bytes
func (s *Settings) GetMaxFileSizeBytes() int64 {
	return int64(s.GetMaxFileSizeMB()) * 1024 * 1024
}

// GetProbeTimeout returns the metadata probe deadline
func (s *Settings) GetProbeTimeout() time.Duration {
	return clampDuration(s.v.GetDuration(KeyProbeTimeout), DefaultProbeTimeout, MinTimeout, DefaultFetchTimeout)
}

// GetFetchTimeout returns the fetch deadline
func (s *Settings) GetFetchTimeout() time.Duration {
	return clampDuration(s.v.GetDuration(KeyFetchTimeout), DefaultFetchTimeout, MinTimeout, MaxFetchTimeout)
}

// GetYtdlpExecutable returns an explicit yt-dlp binary, empty for the default lookup
func (s *Settings) GetYtdlpExecutable() string {
	return strings.TrimSpace(s.v.GetString(KeyYtdlpExecutable))
}

// GetYtdlpAutoInstall reports whether yt-dlp should be installed when missing
func (s *Settings) GetYtdlpAutoInstall() bool {
	return s.v.GetBool(KeyYtdlpInstall)
}

// GetFFmpegPath returns an explicit ffmpeg binary
func (s *Settings) GetFFmpegPath() string {
	return strings.TrimSpace(s.v.GetString(KeyFFmpegPath))
}

// GetFFprobePath returns an explicit ffprobe binary
func (s *Settings) GetFFprobePath() string {
	return strings.TrimSpace(s.v.GetString(KeyFFprobePath))
}

// GetTranscodeEnabled reports whether audio may be transcoded when ffmpeg is present
func (s *Settings) GetTranscodeEnabled() bool {
	return s.v.GetBool(KeyTranscode)
}

// GetAudioFormat returns the transcoding target codec
func (s *Settings) GetAudioFormat() string {
	format := strings.ToLower(strings.TrimSpace(s.v.GetString(KeyAudioFormat)))
	if format == "" {
		return DefaultAudioFormat
	}
	return format
}

// GetAudioQuality returns the transcoding quality passed to yt-dlp
func (s *Settings) GetAudioQuality() string {
	quality := strings.TrimSpace(s.v.GetString(KeyAudioQuality))
	if quality == "" {
		return DefaultAudioQuality
	}
	return quality
}

// GetLanguage returns the configured message language
func (s *Settings) GetLanguage() string {
	lang := strings.ToLower(strings.TrimSpace(s.v.GetString(KeyLanguage)))
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// GetLanguageOptions returns the accepted language values and their names
func (s *Settings) GetLanguageOptions() map[string]string {
	options := messages.NewCatalog(messages.LangEnglish).AvailableLanguages()
	options[messages.LangSystem] = "System Default"
	return options
}

// GetIdleHorizon returns how long an idle session is kept
func (s *Settings) GetIdleHorizon() time.Duration {
	return clampDuration(s.v.GetDuration(KeyIdleHorizon), DefaultIdleHorizon, time.Minute, 24*time.Hour)
}

// GetJanitorInterval returns how often idle sessions are evicted
func (s *Settings) GetJanitorInterval() time.Duration {
	return clampDuration(s.v.GetDuration(KeyJanitorInterval), DefaultJanitorInterval, time.Second, time.Hour)
}

// GetRateLimit returns downloads allowed per identity per hour; 0 disables the limit
func (s *Settings) GetRateLimit() int {
	value := s.v.GetInt(KeyRateLimit)
	if value < 0 {
		return 0
	}
	return value
}

// GetAdminIDs returns the user IDs allowed to read global statistics. Values
// may be a list or a comma separated string.
func (s *Settings) GetAdminIDs() ([]int64, error) {
	var ids []int64
	for _, item := range s.v.GetStringSlice(KeyAdminIDs) {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetStatsBackend returns memory or redis
func (s *Settings) GetStatsBackend() string {
	backend := strings.ToLower(strings.TrimSpace(s.v.GetString(KeyStatsBackend)))
	if backend == "" {
		return DefaultStatsBackend
	}
	return backend
}

// GetRedisPrefix returns the namespace of every statistics key in redis
func (s *Settings) GetRedisPrefix() string {
	prefix := strings.TrimSpace(s.v.GetString(KeyRedisPrefix))
	if prefix == "" {
		return DefaultRedisPrefix
	}
	return prefix
}

// GetRedisURL returns the redis connection URL
func (s *Settings) GetRedisURL() string {
	return strings.TrimSpace(s.v.GetString(KeyRedisURL))
}

// GetHTTPAddr returns the listen address of the metrics server; empty disables it
func (s *Settings) GetHTTPAddr() string {
	return strings.TrimSpace(s.v.GetString(KeyHTTPAddr))
}

// GetLogLevel returns the log level
func (s *Settings) GetLogLevel() string {
	return s.v.GetString(KeyLogLevel)
}

// GetLogFormat returns json or console
func (s *Settings) GetLogFormat() string {
	return s.v.GetString(KeyLogFormat)
}

// GetLogOutput returns stdout, stderr or file
func (s *Settings) GetLogOutput() string {
	return s.v.GetString(KeyLogOutput)
}

// GetLogFile returns the log file used when output is file
func (s *Settings) GetLogFile() string {
	return s.v.GetString(KeyLogFile)
}

func clampDuration(value, fallback, lo, hi time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
