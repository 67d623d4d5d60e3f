package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"cmms_backend/config"
)

var Redis *redis.Client

// InitRedis инициализирует подключение к Redis
func InitRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		log.Info("Redis отключен, кэширование не используется")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.MaxConns,
		MinIdleConns: 2,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  300 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	log.Info("Успешно подключено к Redis")
	Redis = client
	return client, nil
}

// GetRedis возвращает экземпляр Redis клиента
func GetRedis() *redis.Client {
	return Redis
}

// GenerateCacheKey генерирует ключ кэша для мультитенантности
func GenerateCacheKey(tenantID uuid.UUID, prefix string, suffix string) string {
	return fmt.Sprintf("tenant:%s:%s:%s", tenantID, prefix, suffix)
}

// TenantKeyPattern возвращает шаблон всех ключей организации с указанным префиксом
func TenantKeyPattern(tenantID uuid.UUID, prefix string) string {
	return fmt.Sprintf("tenant:%s:%s:*", tenantID, prefix)
}
