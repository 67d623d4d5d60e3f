package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cmms_backend/config"
	"cmms_backend/models"
)

var DB *gorm.DB

// CreateDatabaseIfNotExists создает базу данных, если она не существует
func CreateDatabaseIfNotExists(cfg *config.Config) error {
	// Для внешней строки подключения (Supabase) база уже создана
	if cfg.Database.URL != "" {
		return nil
	}

	// Подключаемся к PostgreSQL без указания конкретной БД (к postgres по умолчанию)
	db, err := sql.Open("postgres", cfg.GetAdminDSN())
	if err != nil {
		return fmt.Errorf("не удалось подключиться к PostgreSQL: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("не удалось проверить подключение к PostgreSQL: %w", err)
	}

	dbname := cfg.Database.Name

	var exists bool
	query := "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1);"
	if err := db.QueryRow(query, dbname).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка при проверке существования базы данных: %w", err)
	}

	if exists {
		log.Infof("База данных '%s' уже существует", dbname)
		return nil
	}

	createQuery := fmt.Sprintf("CREATE DATABASE %s;", pq.QuoteIdentifier(dbname))
	if _, err := db.Exec(createQuery); err != nil {
		return fmt.Errorf("не удалось создать базу данных '%s': %w", dbname, err)
	}

	log.Infof("База данных '%s' успешно создана", dbname)
	return nil
}

// ConnectDatabase инициализирует подключение к PostgreSQL
func ConnectDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.App.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить пул соединений: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Успешно подключено к PostgreSQL")

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("ошибка автомиграции: %w", err)
	}

	DB = db
	return db, nil
}

// GetDB возвращает экземпляр базы данных
func GetDB() *gorm.DB {
	return DB
}

// AutoMigrate выполняет автомиграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Warehouse{},
		&models.Equipment{},
		&models.Part{},
		&models.PreventiveMaintenance{},
		&models.PMCompletion{},
		&models.WorkOrder{},
		&models.Notification{},
	)
	if err != nil {
		return err
	}

	log.Debug("Автомиграция моделей выполнена успешно")
	return nil
}
