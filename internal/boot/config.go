package boot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env     string `env:"ENV,default=dev"`
	DataDir string `env:"DATA_DIR,default=."`
	Server  struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
		TrustProxy  bool   `env:"TRUST_PROXY,default=false"`
	}
	Moderation struct {
		APIKey  string        `env:"GEMINI_API_KEY"`
		Model   string        `env:"GEMINI_MODEL,default=gemini-3-flash-preview"`
		BaseURL string        `env:"GEMINI_BASE_URL,default=https://generativelanguage.googleapis.com/v1beta"`
		Timeout time.Duration `env:"MODERATION_TIMEOUT,default=10s"`
		RPS     float64       `env:"MODERATION_RPS,default=5"`
	}
	RateLimit struct {
		GuestDaily    int    `env:"GUEST_DAILY_LIMIT,default=1"`
		UserDaily     int    `env:"USER_DAILY_LIMIT,default=10"`
		TimeZone      string `env:"RATE_LIMIT_TZ,default=UTC"`
		PruneSchedule string `env:"USAGE_PRUNE_SCHEDULE,default=@daily"`
	}
	AuthoritiesFile string        `env:"AUTHORITIES_FILE"`
	SessionSecret   string        `env:"SESSION_SECRET,default=dev-secret"`
	SessionTTL      time.Duration `env:"SESSION_TTL,default=720h"`
}

// Load reads the environment, after merging any .env file in the working
// directory. Variables already set win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	config := &Config{}
	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, o := range strings.Split(c.Server.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.RateLimit.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading rate limit time zone: %w", err)
	}
	return loc, nil
}
