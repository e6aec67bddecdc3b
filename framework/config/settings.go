package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultSettingsModule is used when APP_SETTINGS_MODULE is unset.
const DefaultSettingsModule = "configs.app"

// SettingsEnvPrefix prefixes env overrides: BOOTSTRAP_HTTP_ADDR overrides http.addr.
const SettingsEnvPrefix = "BOOTSTRAP"

var (
	ErrInvalidSettingsModule = errors.New("config: invalid settings module")
	ErrSettingsNotFound      = errors.New("config: settings module not found")
	ErrInvalidSettings       = errors.New("config: invalid settings")
)

var moduleRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Settings is the web framework configuration loaded from a settings module.
type Settings struct {
	Module     string             `mapstructure:"-"`
	HTTP       HTTPSettings       `mapstructure:"http"`
	Middleware MiddlewareSettings `mapstructure:"middleware"`
	Metrics    MetricsSettings    `mapstructure:"metrics"`
}

type HTTPSettings struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// RequestTimeout bounds each request through chi's Timeout middleware; 0 disables it.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

type MiddlewareSettings struct {
	RealIP     bool `mapstructure:"real_ip"`
	RequestLog bool `mapstructure:"request_log"`
	Recoverer  bool `mapstructure:"recoverer"`
	// Tracing wraps the router in otelhttp server instrumentation.
	Tracing bool `mapstructure:"tracing"`
}

type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// ValidModule reports whether module is a dotted identifier such as "configs.app".
func ValidModule(module string) bool {
	return moduleRe.MatchString(module)
}

// LoadSettings reads the settings module from the first search root that
// contains it (default: the working directory). YAML, JSON and TOML files
// are accepted. Env variables prefixed with SettingsEnvPrefix override file
// values.
func LoadSettings(module string, searchRoots ...string) (*Settings, error) {
	if !ValidModule(module) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSettingsModule, module)
	}
	if len(searchRoots) == 0 {
		searchRoots = []string{"."}
	}

	parts := strings.Split(module, ".")
	dir := filepath.Join(parts[:len(parts)-1]...)

	v := viper.New()
	v.SetConfigName(parts[len(parts)-1])
	for _, root := range searchRoots {
		v.AddConfigPath(filepath.Join(root, dir))
	}
	v.SetEnvPrefix(SettingsEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %q", ErrSettingsNotFound, module)
		}
		return nil, fmt.Errorf("config: reading settings %q: %w", module, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: decoding settings %q: %w", module, err)
	}
	s.Module = module

	if err := validator.New().Struct(&s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, module, err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.request_timeout", 0)
	v.SetDefault("middleware.real_ip", true)
	v.SetDefault("middleware.request_log", true)
	v.SetDefault("middleware.recoverer", true)
	v.SetDefault("middleware.tracing", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
