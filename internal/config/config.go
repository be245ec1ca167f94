package config

import (
	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppName string `env:"APP_NAME,default=ledger-agent"`
	AppEnv  string `env:"APP_ENV,default=development"`

	HttpServerPort        string `env:"HTTP_SERVER_PORT,default=8080"`
	HttpServerReadTimeout int    `env:"HTTP_SERVER_READ_TIMEOUT,default=5000"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST,default=localhost"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER,default=postgres"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDB       string `env:"POSTGRES_WRITE_DB,default=ledger"`
	PostgresReadHost      string `env:"POSTGRES_READ_HOST,default=localhost"`
	PostgresReadPort      string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser      string `env:"POSTGRES_READ_USER,default=postgres"`
	PostgresReadPassword  string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDB        string `env:"POSTGRES_READ_DB,default=ledger"`

	RedisHost     string `env:"REDIS_HOST,default=localhost"`
	RedisPort     string `env:"REDIS_PORT,default=6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	PromEnabled   bool   `env:"PROM_ENABLED,default=false"`
	PromPort      string `env:"PROM_PORT,default=9100"`
	PromNamespace string `env:"PROM_NAMESPACE,default=ledger"`

	LogLevel string `env:"LOG_LEVEL,default=info"`

	// UndoTTLSeconds bounds how long an undo token stays redeemable.
	UndoTTLSeconds  int    `env:"UNDO_TTL_SECONDS,default=300"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY,default=KRW"`

	// LLMProvider selects the chat extraction backend: ollama | gemini | groq | grok.
	LLMProvider   string `env:"LLM_PROVIDER,default=groq"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL,default=gemini-2.0-flash"`
	GroqAPIKey    string `env:"GROQ_API_KEY"`
	GroqModel     string `env:"GROQ_MODEL,default=llama-3.3-70b-versatile"`
	GrokAPIKey    string `env:"GROK_API_KEY"`
	GrokModel     string `env:"GROK_MODEL,default=grok-2-latest"`
	OllamaBaseURL string `env:"OLLAMA_BASE_URL,default=http://localhost:11434"`
	OllamaModel   string `env:"OLLAMA_MODEL,default=llama3.1"`
}

var config *Config

// Load reads the optional dotenv file at path and then unmarshals the
// process environment into the package config.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, errors.Wrap(err, "could not load env file")
		}
	}
	c := Config{}
	if _, err := env.UnmarshalFromEnviron(&c); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal environment")
	}
	config = &c
	return config, nil
}

func Get() *Config {
	if config == nil {
		panic("config is not loaded")
	}
	return config
}
