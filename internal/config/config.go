package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// LLM provider
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMMaxRetries int
	LLMTimeout    time.Duration

	// Session/checkpoint backing stores
	UseRedisStores bool
	RedisAddr      string
	RedisPassword  string

	// Conversation agent
	RequireAuth     bool
	GraphStepLimit  int
	WelcomeGreeting string
	AgentName       string
	AgentPersona    string
	AgentTone       string
	BookingTimezone string
	RelayVoice      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "localhost:8080"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMMaxRetries: getEnvAsInt("LLM_MAX_RETRIES", 2),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 10*time.Second),

		UseRedisStores: getEnvAsBool("USE_REDIS_STORES", false),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),

		RequireAuth:     getEnvAsBool("REQUIRE_AUTH", false),
		GraphStepLimit:  getEnvAsInt("GRAPH_STEP_LIMIT", 10),
		WelcomeGreeting: getEnv("WELCOME_GREETING", "Welcome to the Appollo Clinic. How can I help you today?"),
		AgentName:       getEnv("AGENT_NAME", "Amelia"),
		AgentPersona:    getEnv("AGENT_PERSONA", "Helpful and courteous"),
		AgentTone:       getEnv("AGENT_TONE", "Helpful and Casual"),
		BookingTimezone: getEnv("BOOKING_TZ", "Asia/Kolkata"),
		RelayVoice:      getEnv("RELAY_VOICE", ""),
	}
}

// WebSocketURL returns the ConversationRelay websocket URL derived from the
// public base host.
func (c *Config) WebSocketURL() string {
	if url := os.Getenv("VOICE_WEBSOCKET_URL"); url != "" {
		return url
	}
	return "wss://" + c.PublicBaseURL + "/voice/ws"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
