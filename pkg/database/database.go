package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the receipt store (postgres) and the checkout journal
// (mongo). The journal is optional: MongoDB is nil when it is unreachable.
type Database struct {
	Postgres *gorm.DB
	MongoDB  *mongo.Database
	logger   *zap.Logger
}

func NewDatabase(postgresURL, mongoURL, mongoDBName string, logger *zap.Logger, verbose bool) (*Database, error) {
	postgresDB, err := initPostgreSQL(postgresURL, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	mongoDB, err := initMongoDB(mongoURL, mongoDBName)
	if err != nil {
		logger.Warn("MongoDB connection failed, checkout journal disabled", zap.Error(err))
		mongoDB = nil
	} else {
		logger.Info("connected to MongoDB", zap.String("database", mongoDBName))
	}

	return &Database{
		Postgres: postgresDB,
		MongoDB:  mongoDB,
		logger:   logger,
	}, nil
}

func initPostgreSQL(url string, verbose bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	config := &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	}

	db, err := gorm.Open(postgres.Open(url), config)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongoDB(url, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(dbName), nil
}

// AutoMigrate creates or updates the postgres tables for models.
func (db *Database) AutoMigrate(models ...interface{}) error {
	return db.Postgres.AutoMigrate(models...)
}

func (db *Database) Close() error {
	if sqlDB, err := db.Postgres.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			db.logger.Warn("closing PostgreSQL", zap.Error(err))
		}
	}

	if db.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.MongoDB.Client().Disconnect(ctx)
	}

	return nil
}
