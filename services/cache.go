package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"cmms_backend/database"
)

// ErrCacheMiss возвращается, когда ключ отсутствует в кэше или Redis не подключен
var ErrCacheMiss = errors.New("cache miss")

// Константы для TTL кэша
const (
	CacheTTLShort  = 5 * time.Minute  // Для часто изменяемых данных
	CacheTTLMedium = 15 * time.Minute // Для умеренно изменяемых данных
)

const dueReportPrefix = "pm_due"

// CacheService предоставляет методы для кэширования
type CacheService struct {
	redis *redis.Client
}

// NewCacheService создает новый экземпляр CacheService.
// При nil клиенте все операции становятся пустыми.
func NewCacheService(redisClient *redis.Client) *CacheService {
	return &CacheService{redis: redisClient}
}

// Enabled проверяет, подключен ли Redis
func (cs *CacheService) Enabled() bool {
	return cs != nil && cs.redis != nil
}

// GetJSON получает JSON объект из кэша
func (cs *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if !cs.Enabled() {
		return ErrCacheMiss
	}

	val, err := cs.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("ошибка десериализации JSON: %w", err)
	}
	return nil
}

// SetJSON сохраняет JSON объект в кэш
func (cs *CacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !cs.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}
	return cs.redis.Set(ctx, key, data, ttl).Err()
}

// DeletePattern удаляет все ключи по шаблону
func (cs *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	if !cs.Enabled() {
		return nil
	}

	iter := cs.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return cs.redis.Del(ctx, keys...).Err()
}

// DueReportKey возвращает ключ кэша активных графиков для отчета по срокам ТО
func DueReportKey(orgID uuid.UUID, warehouseID *uuid.UUID) string {
	wh := "all"
	if warehouseID != nil {
		wh = warehouseID.String()
	}
	return database.GenerateCacheKey(orgID, dueReportPrefix, wh)
}

// InvalidateDueReports сбрасывает кэш отчетов по срокам организации
func (cs *CacheService) InvalidateDueReports(ctx context.Context, orgID uuid.UUID) {
	if err := cs.DeletePattern(ctx, database.TenantKeyPattern(orgID, dueReportPrefix)); err != nil {
		log.WithError(err).WithField("organization_id", orgID).Warn("Не удалось сбросить кэш отчетов по срокам ТО")
	}
}
