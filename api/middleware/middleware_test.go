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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dispatchdesk/cashbook/config"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, "ok") })
	r.GET("/reports", func(c *gin.Context) { c.JSON(http.StatusOK, "ok") })
	return r
}

func TestSecretKeyAuthMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		secretKey    string
		header       string
		expectedCode int
	}{
		{name: "valid key", path: "/reports", secretKey: "s3cret", header: "s3cret", expectedCode: http.StatusOK},
		{name: "wrong key", path: "/reports", secretKey: "s3cret", header: "guess", expectedCode: http.StatusUnauthorized},
		{name: "missing key", path: "/reports", secretKey: "s3cret", expectedCode: http.StatusUnauthorized},
		{name: "server key not configured", path: "/reports", header: "anything", expectedCode: http.StatusInternalServerError},
		{name: "health route is open", path: "/", secretKey: "s3cret", expectedCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.MockConfig(&config.Configuration{
				Server: config.ServerConfig{Secure: true, SecretKey: tt.secretKey},
			})
			router := newRouter(SecretKeyAuthMiddleware())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(SecretKeyHeader, tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rps := 1.0
	burst := 1
	router := newRouter(RateLimitMiddleware(&config.Configuration{
		RateLimit: config.RateLimitConfig{RequestsPerSecond: &rps, Burst: &burst},
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	router := newRouter(RateLimitMiddleware(&config.Configuration{}))
	for i := 0; i < 20; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/reports", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	}
}

func TestRateLimitMiddleware_PerClientBuckets(t *testing.T) {
	rps := 0.5
	burst := 1
	cleanup := 60
	router := newRouter(RateLimitMiddleware(&config.Configuration{
		RateLimit: config.RateLimitConfig{RequestsPerSecond: &rps, Burst: &burst, CleanupIntervalSec: &cleanup},
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.RemoteAddr = addr
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
	limited := send("10.0.0.2:1001")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), `"code":"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, send("10.0.0.3:1000").Code)
}

func TestClientLimiter_Unset(t *testing.T) {
	rps := 5.0
	assert.Nil(t, clientLimiter(config.RateLimitConfig{RequestsPerSecond: &rps}))
	assert.Nil(t, clientLimiter(config.RateLimitConfig{}))
}
