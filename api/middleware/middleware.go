/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/dispatchdesk/cashbook/config"
	"github.com/gin-gonic/gin"
)

// defaultLimiterTTL is how long an idle client's token bucket is kept when
// cleanup_interval_sec is unset.
const defaultLimiterTTL = 10 * time.Minute

// clientLimiter builds the per-IP token bucket from the rate_limit settings.
// It returns nil when either the rate or the burst is unset.
func clientLimiter(settings config.RateLimitConfig) *limiter.Limiter {
	if settings.RequestsPerSecond == nil || settings.Burst == nil {
		return nil
	}
	keepFor := defaultLimiterTTL
	if settings.CleanupIntervalSec != nil {
		keepFor = time.Duration(*settings.CleanupIntervalSec) * time.Second
	}

	buckets := tollbooth.NewLimiter(*settings.RequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: keepFor,
	})
	buckets.SetBurst(*settings.Burst)
	buckets.SetMessage("too many requests from this client, slow down")
	return buckets
}

// RateLimitMiddleware caps how fast one client IP may call the API. Callers
// over the cap get 429 and the request never reaches a handler.
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	buckets := clientLimiter(conf.RateLimit)
	if buckets == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if rejected := tollbooth.LimitByRequest(buckets, c.Writer, c.Request); rejected != nil {
			c.AbortWithStatusJSON(rejected.StatusCode, gin.H{"code": "RATE_LIMITED", "message": rejected.Message})
			return
		}
		c.Next()
	}
}

// SecretKeyHeader carries the shared secret when the server runs in secure mode.
const SecretKeyHeader = "X-Cashbook-Key"

// SecretKeyAuthMiddleware rejects requests whose SecretKeyHeader does not
// match the configured server secret. The root health route stays open.
func SecretKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" {
			c.Next()
			return
		}
		if status, reason := checkSecret(c.GetHeader(SecretKeyHeader)); status != http.StatusOK {
			c.AbortWithStatusJSON(status, gin.H{"code": "UNAUTHORIZED", "message": reason})
			return
		}
		c.Next()
	}
}

// checkSecret compares the presented key against the server's. A server
// without a key fails closed with 500.
func checkSecret(presented string) (int, string) {
	conf, err := config.Fetch()
	if err != nil || conf.Server.SecretKey == "" {
		return http.StatusInternalServerError, "server secret key is not configured"
	}
	if presented == "" {
		return http.StatusUnauthorized, "missing " + SecretKeyHeader + " header"
	}
	if subtle.ConstantTimeCompare([]byte(conf.Server.SecretKey), []byte(presented)) != 1 {
		return http.StatusUnauthorized, "secret key does not match"
	}
	return http.StatusOK, ""
}
