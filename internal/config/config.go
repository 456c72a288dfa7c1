package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	WorkDir       string
	DBPath        string
	WhisperURL    string
	OpenAIKey     string
	DefaultEngine string
	MaxUploadMB   int64
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string
}

func Load() *Config {
	// Optional .env for local development; deployments set the environment directly.
	godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	workDir := getEnv("WORK_DIR", os.TempDir())
	maxUpload, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "512"), 10, 64)

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	return &Config{
		Port:          port,
		WorkDir:       workDir,
		DBPath:        getEnv("DB_PATH", workDir+"/transcriber.db"),
		WhisperURL:    os.Getenv("WHISPER_URL"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		DefaultEngine: getEnv("DEFAULT_ENGINE", "faster-whisper"),
		MaxUploadMB:   maxUpload,
		JWTSecret:     jwtSecret,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:   corsOrigins,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
