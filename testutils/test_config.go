package testutils

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cmms_backend/config"
	"cmms_backend/database"
)

// SetupTestDB создает тестовую базу данных SQLite
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Файл во временной директории: в отличие от :memory: он общий для всех соединений пула
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Отключаем логи в тестах
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// SetupTestConfig настраивает тестовую конфигурацию
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("APP_ENV", "test")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	t.Setenv("PM_SCHEDULER_ENABLED", "false")
	t.Setenv("PM_REPORTS_DIR", t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}
	return cfg
}

// CleanupTestDB закрывает соединение с тестовой базой данных
func CleanupTestDB(db *gorm.DB) {
	if db != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}
