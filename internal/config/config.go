package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultChatModels are the Groq-hosted candidates tried in order.
var DefaultChatModels = []string{"llama3-8b-8192", "mixtral-8x7b-32768", "gemma-7b-it"}

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Chat completion candidates
	GroqAPIKey          string
	GroqBaseURL         string
	ChatModels          []string
	ModelAttemptTimeout time.Duration
	ChatMaxTokens       int
	ChatTemperature     float64
	GeminiAPIKey        string
	GeminiModel         string
	AWSRegion           string
	BedrockModelID      string

	// Augmented search
	PerplexityAPIKey  string
	PerplexityBaseURL string
	PerplexityModel   string

	// Speech
	ElevenLabsAPIKey   string
	ElevenLabsBaseURL  string
	ElevenLabsModelID  string
	EspeakBinary       string
	VoiceDefaultGender string
	VoiceDefaultAccent string
	SpeechEnabled      bool
	SpeechLanguage     string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		GroqAPIKey:          getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:         getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ChatModels:          getEnvAsList("CHAT_MODELS", DefaultChatModels),
		ModelAttemptTimeout: getEnvAsDuration("MODEL_ATTEMPT_TIMEOUT", 15*time.Second),
		ChatMaxTokens:       getEnvAsInt("CHAT_MAX_TOKENS", 500),
		ChatTemperature:     getEnvAsFloat("CHAT_TEMPERATURE", 0.7),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		PerplexityAPIKey:  getEnv("PERPLEXITY_API_KEY", ""),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		PerplexityModel:   getEnv("PERPLEXITY_MODEL", "llama-3.1-sonar-small-128k-online"),

		ElevenLabsAPIKey:   getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL:  getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		ElevenLabsModelID:  getEnv("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		EspeakBinary:       getEnv("ESPEAK_BINARY", "espeak-ng"),
		VoiceDefaultGender: strings.ToLower(getEnv("VOICE_DEFAULT_GENDER", "female")),
		VoiceDefaultAccent: getEnv("VOICE_DEFAULT_ACCENT", "Indian"),
		SpeechEnabled:      getEnvAsBool("SPEECH_ENABLED", false),
		SpeechLanguage:     getEnv("SPEECH_LANGUAGE", "en-US"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// Capabilities reports which external providers are configured.
func (c *Config) Capabilities() map[string]bool {
	return map[string]bool{
		"groq":       c.GroqAPIKey != "",
		"perplexity": c.PerplexityAPIKey != "",
		"elevenlabs": c.ElevenLabsAPIKey != "",
		"gemini":     c.GeminiAPIKey != "",
		"bedrock":    c.BedrockModelID != "",
		"speech":     c.SpeechEnabled,
		"redis":      c.RedisAddr != "",
	}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return out
}
