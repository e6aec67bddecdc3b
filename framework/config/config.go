package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process-level configuration read from the environment.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Tracing   TracingConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	// SettingsModule names the framework settings file, dotted like a
	// package path: "configs.app" is configs/app.yaml.
	SettingsModule string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

type TracingConfig struct {
	ServiceName string
	SampleRatio float64
}

// BootstrapConfig holds the default phase flags; CLI flags override them.
type BootstrapConfig struct {
	ConfigureFramework  bool
	ConfigureLogging    bool
	InstrumentLibraries bool
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at startup: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	name := env("APP_NAME", "bootstrapd")
	return &Config{
		App: AppConfig{
			Name:           name,
			Env:            env("APP_ENV", "local"),
			Debug:          envBool("APP_DEBUG", false),
			SettingsModule: env("APP_SETTINGS_MODULE", DefaultSettingsModule),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			ServiceName: env("OTEL_SERVICE_NAME", name),
			SampleRatio: GetFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
		Bootstrap: BootstrapConfig{
			ConfigureFramework:  envBool("BOOTSTRAP_CONFIGURE_FRAMEWORK", true),
			ConfigureLogging:    envBool("BOOTSTRAP_CONFIGURE_LOGGING", true),
			InstrumentLibraries: envBool("BOOTSTRAP_INSTRUMENT_LIBRARIES", true),
		},
	}
}

func (c *Config) IsLocal() bool      { return c.App.Env == "local" }
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetFloat returns a float env value.
func GetFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
