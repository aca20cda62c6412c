package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	TriviaAPIURL     string
	MaxPlayers       int
	QuestionDuration int // seconds per question
	QuestionCount    int // questions per game
}

func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		TriviaAPIURL:     getEnv("TRIVIA_API_URL", "https://opentdb.com"),
		MaxPlayers:       getEnvInt("MAX_PLAYERS", 4),
		QuestionDuration: getEnvInt("QUESTION_DURATION", 30),
		QuestionCount:    getEnvInt("QUESTION_COUNT", 10),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
