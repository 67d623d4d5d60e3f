package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Name         string                    // Пространство ключей лимитера
	Requests     int                       // Количество запросов
	Window       time.Duration             // Временное окно
	KeyGenerator func(*gin.Context) string // Генератор ключей
}

// DefaultKeyGenerator генерирует ключ на основе IP адреса
func DefaultKeyGenerator(c *gin.Context) string {
	return c.ClientIP()
}

// OrganizationKeyGenerator генерирует ключ на основе организации запроса
func OrganizationKeyGenerator(c *gin.Context) string {
	if orgID, ok := GetOrganizationID(c); ok {
		return "org:" + orgID.String()
	}
	return c.ClientIP()
}

// RateLimit создает middleware для ограничения частоты запросов.
// Без Redis ограничение не применяется.
func RateLimit(client *redis.Client, config RateLimitConfig) gin.HandlerFunc {
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultKeyGenerator
	}
	if config.Name == "" {
		config.Name = "default"
	}

	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		// Счетчики разных лимитеров не пересекаются
		key := "rate_limit:" + config.Name + ":" + config.KeyGenerator(c)

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			log.WithError(err).Warn("Rate limit недоступен, запрос пропущен")
			c.Next()
			return
		}
		if count == 1 {
			// TTL ставится только новому счетчику
			client.Expire(ctx, key, config.Window)
		}

		current := int(count)
		remaining := config.Requests - current
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(config.Window).Unix(), 10))

		if current > config.Requests {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error":  "Rate limit exceeded",
				"message": fmt.Sprintf("Too many requests. Limit: %d requests per %v",
					config.Requests, config.Window),
				"retry_after": config.Window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ModerateRateLimit умеренное ограничение для обычных API
func ModerateRateLimit(client *redis.Client) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Name:         "moderate",
		Requests:     100,
		Window:       time.Minute,
		KeyGenerator: OrganizationKeyGenerator,
	})
}

// StrictRateLimit строгое ограничение для тяжелых операций (генерация нарядов, выгрузки)
func StrictRateLimit(client *redis.Client) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Name:         "strict",
		Requests:     10,
		Window:       time.Minute,
		KeyGenerator: OrganizationKeyGenerator,
	})
}
