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

package cashbook

import (
	"context"
	"strings"
	"time"

	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/dispatchdesk/cashbook/internal/cache"
	"github.com/dispatchdesk/cashbook/ledger"
	"github.com/sirupsen/logrus"
)

const actorNameCacheKey = "cashbook:actor-name:"

type actorNameSource interface {
	GetActorName(ctx context.Context, actorID string) (string, error)
}

// ActorNameResolver turns actor ids into display labels. It never fails:
// anything it cannot resolve gets the actor-<id> placeholder.
type ActorNameResolver struct {
	source actorNameSource
	cache  cache.Cache
	ttl    time.Duration
}

func NewActorNameResolver(source actorNameSource, c cache.Cache, ttl time.Duration) *ActorNameResolver {
	return &ActorNameResolver{source: source, cache: c, ttl: ttl}
}

// Resolve returns the label for actorID. Unknown actors are cached with
// their placeholder; lookup failures are not cached so the next call retries.
func (r *ActorNameResolver) Resolve(ctx context.Context, actorID string) string {
	key := actorNameCacheKey + actorID
	if r.cache != nil {
		var name string
		found, err := r.cache.Get(ctx, key, &name)
		if err != nil {
			logrus.WithError(err).WithField("actor_id", actorID).Debug("actor name cache read failed")
		}
		if found && name != "" {
			return name
		}
	}

	if r.source == nil {
		return ledger.PlaceholderLabel(actorID)
	}

	name, err := r.source.GetActorName(ctx, actorID)
	switch {
	case apierror.Is(err, apierror.ErrNotFound):
		name = ledger.PlaceholderLabel(actorID)
	case err != nil:
		logrus.WithError(err).WithField("actor_id", actorID).Warn("could not resolve actor name")
		return ledger.PlaceholderLabel(actorID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = ledger.PlaceholderLabel(actorID)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, name, r.ttl); err != nil {
			logrus.WithError(err).WithField("actor_id", actorID).Debug("actor name cache write failed")
		}
	}
	return name
}

// Labels resolves every id in actorIDs.
func (r *ActorNameResolver) Labels(ctx context.Context, actorIDs []string) map[string]string {
	labels := make(map[string]string, len(actorIDs))
	for _, id := range actorIDs {
		labels[id] = r.Resolve(ctx, id)
	}
	return labels
}
