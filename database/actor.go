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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

// GetActorName returns the display name registered for actorID.
func (d Datasource) GetActorName(ctx context.Context, actorID string) (string, error) {
	ctx, span := otel.Tracer("Actor").Start(ctx, "Fetching actor name from db")
	defer span.End()

	var name string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT name FROM cashbook.actors WHERE actor_id = $1
	`, actorID).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Actor with ID '%s' not found", actorID), nil)
		}
		return "", apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to retrieve actor", errors.Wrap(err, "fetching actor"))
	}
	return name, nil
}
