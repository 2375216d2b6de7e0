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
	"github.com/dispatchdesk/cashbook/model"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const selectTransactions = `
	SELECT transaction_id, amount, payment_kind, actor_id, location_key, occurred_at
	FROM cashbook.transactions
	WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR occurred_at < $2)`

const orderTransactions = `
	ORDER BY occurred_at, transaction_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var txn model.Transaction
	var actorID sql.NullString
	var kind string
	err := row.Scan(&txn.ID, &txn.Amount, &kind, &actorID, &txn.LocationKey, &txn.OccurredAt)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.PaymentKind = model.PaymentKind(kind)
	txn.ActorID = actorID.String
	return txn, nil
}

func (d Datasource) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]model.Transaction, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to fetch transactions", errors.Wrap(err, "querying transactions"))
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to read transactions", errors.Wrap(err, "scanning transaction"))
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to read transactions", errors.Wrap(err, "iterating transactions"))
	}
	return txns, nil
}

// FetchTransactions returns every transaction whose instant falls inside
// rng's days in the reporting zone.
func (d Datasource) FetchTransactions(ctx context.Context, rng model.DateRange) ([]model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transactions from db")
	defer span.End()

	from, to := rng.Instants(d.zone())
	txns, err := d.queryTransactions(ctx, selectTransactions+orderTransactions, nullTime(from), nullTime(to))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("transactions.count", len(txns)))
	return txns, nil
}

func (d Datasource) FetchActorTransactions(ctx context.Context, actorID string, rng model.DateRange) ([]model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching actor transactions from db")
	defer span.End()
	span.SetAttributes(attribute.String("actor.id", actorID))

	from, to := rng.Instants(d.zone())
	return d.queryTransactions(ctx, selectTransactions+`
	  AND actor_id = $3`+orderTransactions, nullTime(from), nullTime(to), actorID)
}

func (d Datasource) FetchLocationTransactions(ctx context.Context, locationKey string, rng model.DateRange) ([]model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching location transactions from db")
	defer span.End()
	span.SetAttributes(attribute.String("location.key", locationKey))

	from, to := rng.Instants(d.zone())
	return d.queryTransactions(ctx, selectTransactions+`
	  AND location_key = $3`+orderTransactions, nullTime(from), nullTime(to), locationKey)
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transaction from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT transaction_id, amount, payment_kind, actor_id, location_key, occurred_at
		FROM cashbook.transactions
		WHERE transaction_id = $1
	`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to retrieve transaction", errors.Wrap(err, "fetching transaction"))
	}
	return &txn, nil
}
