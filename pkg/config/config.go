package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string        `env:"PORT" envDefault:"8080"`
	Env                     string        `env:"ENV" envDefault:"development"`
	FirebaseCredentialsPath string        `env:"FIREBASE_CREDENTIALS_PATH" envDefault:"./firebase_credentials.json"`
	FirebaseDatabaseURL     string        `env:"FIREBASE_DATABASE_URL,required"`
	PostgresConnStr         string        `env:"POSTGRES_CONN_STR,required"`
	MongoURI                string        `env:"MONGO_URI,required"`
	MongoDatabase           string        `env:"MONGO_DATABASE" envDefault:"raite"`
	MessagePollInterval     time.Duration `env:"MESSAGE_POLL_INTERVAL" envDefault:"2s"`
}

// Load reads the .env file if present and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
