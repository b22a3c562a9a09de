package profile

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Server
	Mode     string
	Addr     string
	Port     int
	LogLevel string
	Version  string

	// Slack configuration
	SlackBotToken   string
	SlackPostAsUser bool
	SlackAPIURL     string

	// Datastore configuration
	// Driver is "supabase" (PostgREST over HTTP) or "postgres" (direct SQL).
	DatastoreDriver        string
	DatastoreDSN           string
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseSchema         string
	SupabaseTable          string
	SupabaseSearchFunction string

	// Embedding configuration
	EmbeddingProvider string // http, openai
	EmbeddingAPIURL   string
	EmbeddingAPIKey   string
	EmbeddingModel    string
	EmbeddingDim      int

	// Reply policy overrides, zero means the built-in default.
	ReplyMaxAnswerWords int
	ReplyMaxSources     int
}

const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"

	EmbeddingProviderHTTP   = "http"
	EmbeddingProviderOpenAI = "openai"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// FromEnv loads configuration from environment variables.
// Port, Addr, Mode and LogLevel are owned by the command line layer and are only
// filled here when still empty.
func (p *Profile) FromEnv() {
	if p.Port == 0 {
		p.Port = getEnvOrDefaultInt("PORT", 8080)
	}
	if p.LogLevel == "" {
		p.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")
	}
	p.LogLevel = strings.ToUpper(p.LogLevel)

	p.SlackBotToken = getEnvOrDefault("SLACK_BOT_TOKEN", "")
	p.SlackPostAsUser = getEnvBool("SLACK_POST_AS_USER", false)
	p.SlackAPIURL = getEnvOrDefault("SLACK_API_URL", "https://slack.com/api")

	p.DatastoreDriver = getEnvOrDefault("DATASTORE_DRIVER", DriverSupabase)
	p.DatastoreDSN = getEnvOrDefault("DATASTORE_DSN", "")
	p.SupabaseURL = getEnvOrDefault("SUPABASE_URL", "")
	p.SupabaseAnonKey = getEnvOrDefault("SUPABASE_ANON_KEY", "")
	p.SupabaseServiceRoleKey = getEnvOrDefault("SUPABASE_SERVICE_ROLE_KEY", "")
	p.SupabaseSchema = getEnvOrDefault("SUPABASE_SCHEMA", "public")
	p.SupabaseTable = getEnvOrDefault("SUPABASE_TABLE", "kb")
	p.SupabaseSearchFunction = getEnvOrDefault("SUPABASE_SEARCH_FUNCTION", "match_memories")

	p.EmbeddingProvider = strings.ToLower(getEnvOrDefault("EMBEDDING_PROVIDER", EmbeddingProviderHTTP))
	p.EmbeddingAPIURL = getEnvOrDefault("EMBEDDING_API_URL", "")
	p.EmbeddingAPIKey = getEnvOrDefault("EMBEDDING_API_KEY", "")
	p.EmbeddingModel = getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingDim = getEnvOrDefaultInt("EMBEDDING_DIM", 1536)

	p.ReplyMaxAnswerWords = getEnvOrDefaultInt("REPLY_MAX_ANSWER_WORDS", 0)
	p.ReplyMaxSources = getEnvOrDefaultInt("REPLY_MAX_SOURCES", 0)
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "%s is not a valid URL", name)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// Validate checks required settings. Startup must abort when it fails.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Port < 1 || p.Port > 65535 {
		return errors.Errorf("port %d out of range", p.Port)
	}

	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"SLACK_BOT_TOKEN", p.SlackBotToken},
		{"SUPABASE_URL", p.SupabaseURL},
		{"SUPABASE_SERVICE_ROLE_KEY", p.SupabaseServiceRoleKey},
		{"EMBEDDING_API_URL", p.EmbeddingAPIURL},
		{"EMBEDDING_API_KEY", p.EmbeddingAPIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if err := validateHTTPURL("SUPABASE_URL", p.SupabaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("EMBEDDING_API_URL", p.EmbeddingAPIURL); err != nil {
		return err
	}
	if err := validateHTTPURL("SLACK_API_URL", p.SlackAPIURL); err != nil {
		return err
	}

	if p.EmbeddingDim <= 0 {
		return errors.Errorf("EMBEDDING_DIM must be positive, got %d", p.EmbeddingDim)
	}
	switch p.EmbeddingProvider {
	case EmbeddingProviderHTTP, EmbeddingProviderOpenAI:
	default:
		return errors.Errorf("unknown embedding provider %q", p.EmbeddingProvider)
	}

	switch p.DatastoreDriver {
	case DriverSupabase:
	case DriverPostgres:
		if p.DatastoreDSN == "" {
			return errors.New("DATASTORE_DSN is required when DATASTORE_DRIVER=postgres")
		}
	default:
		return errors.Errorf("unknown datastore driver %q", p.DatastoreDriver)
	}

	if p.SupabaseSchema == "" || p.SupabaseTable == "" || p.SupabaseSearchFunction == "" {
		return errors.New("supabase schema, table and search function must not be empty")
	}

	return nil
}
