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

// Package cashbook reconciles cash collected by dispatch clerks and branches
// against the deposits and expenses recorded for it.
package cashbook

import (
	"embed"
	"time"

	"github.com/dispatchdesk/cashbook/config"
	"github.com/dispatchdesk/cashbook/database"
	"github.com/dispatchdesk/cashbook/internal/cache"
	"github.com/dispatchdesk/cashbook/internal/metrics"
	redis_db "github.com/dispatchdesk/cashbook/internal/redis-db"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("cashbook")

//go:embed sql/*.sql
var SQLFiles embed.FS

// Cashbook serves reconciliation reports and records deposits.
type Cashbook struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	names      *ActorNameResolver
	metrics    *metrics.Metrics
	conf       config.ReconciliationConfig
	zone       *time.Location
}

// NewCashbook wires a Cashbook from the loaded configuration.
func NewCashbook(db database.IDataSource) (*Cashbook, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	return New(db, redisClient.Client(), configuration.Reconciliation, metrics.New()), nil
}

// New builds a Cashbook from explicit collaborators. m may be nil.
func New(db database.IDataSource, client redis.UniversalClient, conf config.ReconciliationConfig, m *metrics.Metrics) *Cashbook {
	nameCache := cache.NewRedisCache(client, conf.ActorNameTTL())
	return &Cashbook{
		datasource: db,
		redis:      client,
		names:      NewActorNameResolver(db, nameCache, conf.ActorNameTTL()),
		metrics:    m,
		conf:       conf,
		zone:       conf.Location(),
	}
}

// Metrics returns the collectors this instance reports to.
func (c *Cashbook) Metrics() *metrics.Metrics {
	return c.metrics
}

// Zone is the reporting zone days are computed in.
func (c *Cashbook) Zone() *time.Location {
	return c.zone
}
