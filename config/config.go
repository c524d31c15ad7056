package configs

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName   string
	Environment   string
	MongoDBURL    string
	NATSURL       string
	RedisURL      string
	RedisPassword string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	config := Config{
		ServiceName:   getEnv("SERVICENAME", "progression-service"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		MongoDBURL:    getEnv("MONGODBURL", "mongodb://localhost:27017"),
		NATSURL:       getEnv("NATSURL", "nats://localhost:4222"),
		RedisURL:      getEnv("REDISURL", "localhost:6379"),
		RedisPassword: getEnv("REDISPASSWORD", ""),
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
