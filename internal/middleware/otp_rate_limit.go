package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const otpRateLimitPrefix = "rl:otp:"

// OTPRequestLimit caps OTP requests per phone (or IP when the body has no
// phone) within a one minute window. normalize maps the raw phone to the key
// used by the OTP flow so formatting variants share a bucket. Without Redis it
// is a no-op and it fails open on cache errors.
func OTPRequestLimit(cache *redis.Client, maxPerMin int, normalize func(string) string, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 3
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Phone string `json:"phone"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.Phone)
		if subject != "" && normalize != nil {
			subject = normalize(subject)
		}
		if subject == "" {
			subject = c.IP()
		}
		key := otpRateLimitPrefix + subject

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("otp rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			if ttl, err := cache.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(int64((ttl+time.Second-1)/time.Second), 10))
			}
			return fiber.NewError(http.StatusTooManyRequests, "Too many OTP requests, try again later")
		}
		return c.Next()
	}
}
