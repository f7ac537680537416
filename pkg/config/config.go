package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	MetricsPort             string
	StorageBackend          string // database or memory
	NotificationBackend     string // postgres or firestore
	FirebaseCredentialsPath string
	FirebaseAPIKey          string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	JWTSecret               string
	CloudinaryURL           string
	CloudinaryFolder        string
	VAPIDPublicKey          string
	VAPIDPrivateKey         string
	VAPIDSubscriber         string
	ReconcileInterval       time.Duration
}

// Load reads the configuration from the environment, after .env if present
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	interval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "1m"))
	if err != nil || interval <= 0 {
		log.Printf("Invalid RECONCILE_INTERVAL, using 1m: %v", err)
		interval = time.Minute
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		StorageBackend:          getEnv("STORAGE_BACKEND", "database"),
		NotificationBackend:     getEnv("NOTIFICATION_BACKEND", "postgres"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "niche_communities"),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		CloudinaryURL:           getEnv("CLOUDINARY_URL", ""),
		CloudinaryFolder:        getEnv("CLOUDINARY_FOLDER", "niche-communities"),
		VAPIDPublicKey:          getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:         getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber:         getEnv("VAPID_SUBSCRIBER", "mailto:admin@example.com"),
		ReconcileInterval:       interval,
	}
}

// UseMemory reports whether every store is kept in process
func (c *Config) UseMemory() bool {
	return c.StorageBackend == "memory"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
