package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server Server
	Gemini Gemini
	Upload Upload
	Logger Logger
}

type Logger struct {
	Level string
}

type Server struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Gemini struct {
	APIKey string
	Model  string
}

type Upload struct {
	MaxSizeMB int
}

func Load() (*Config, error) {
	// Try to load a .env file from the current directory or the project root.
	// If none is found, plain environment variables are used (Docker/K8s).
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "60"))
	maxUpload, _ := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "16"))

	return &Config{
		Server: Server{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Gemini: Gemini{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Upload: Upload{
			MaxSizeMB: maxUpload,
		},
		Logger: Logger{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
