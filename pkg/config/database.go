package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectTimeout = 10 * time.Second

// DB holds the database connections
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
}

// InitDB connects to PostgreSQL and MongoDB and prepares their schema
func InitDB(cfg *Config) (*DB, error) {
	if cfg.PostgresConnStr == "" {
		return nil, fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}

	db := &DB{}
	var err error
	if db.Postgres, err = openPostgres(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if db.Mongo, err = openMongo(cfg.MongoURI); err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	db.MongoDB = db.Mongo.Database(cfg.MongoDatabase)

	if err := db.migrate(); err != nil {
		db.CloseDB()
		return nil, err
	}
	return db, nil
}

func openPostgres(cfg *Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Env == "production" {
		level = logger.Error
	}
	db, err := gorm.Open(postgres.Open(cfg.PostgresConnStr), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	log.Println("Connected to PostgreSQL.")
	return db, nil
}

func openMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(connectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Println("Connected to MongoDB.")
	return client, nil
}

// migrate creates the PostgreSQL tables and the MongoDB indexes the queries rely on
func (db *DB) migrate() error {
	if err := db.Postgres.AutoMigrate(&models.User{}, &models.Membership{}, &models.Notification{}); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	indexes := map[string]mongo.IndexModel{
		"posts":              {Keys: bson.D{{Key: "community_id", Value: 1}, {Key: "created_at", Value: -1}}},
		"communities":        {Keys: bson.D{{Key: "category", Value: 1}}},
		"push_subscriptions": {Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	for coll, model := range indexes {
		if _, err := db.MongoDB.Collection(coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create %s index: %w", coll, err)
		}
	}
	log.Println("MongoDB indexes ensured.")
	return nil
}

// CloseDB closes whichever connections are open
func (db *DB) CloseDB() {
	var errs []error
	if db.Postgres != nil {
		if sqlDB, err := db.Postgres.DB(); err != nil {
			errs = append(errs, fmt.Errorf("postgres handle: %w", err))
		} else if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongo: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("Error closing databases: %v", err)
		return
	}
	log.Println("Database connections closed.")
}
