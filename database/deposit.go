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
	"time"

	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/dispatchdesk/cashbook/model"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// dataExceptionClass covers postgres value errors such as numeric overflow.
// They are caused by the input, so retrying cannot help.
const dataExceptionClass = "22"

const depositColumns = `record_id, deposit_key, deposited_amount, expense_amount, recorded_by, recorded_at, version`

func scanDeposit(row rowScanner) (model.DepositRecord, error) {
	var rec model.DepositRecord
	var key string
	err := row.Scan(&rec.RecordID, &key, &rec.DepositedAmount, &rec.ExpenseAmount, &rec.RecordedBy, &rec.RecordedAt, &rec.Version)
	if err != nil {
		return model.DepositRecord{}, err
	}
	rec.DepositKey, err = model.ParseDepositKey(key)
	if err != nil {
		return model.DepositRecord{}, err
	}
	return rec, nil
}

func (d Datasource) queryDeposits(ctx context.Context, query string, args ...interface{}) ([]model.DepositRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to fetch deposit records", errors.Wrap(err, "querying deposits"))
	}
	defer rows.Close()

	records := []model.DepositRecord{}
	for rows.Next() {
		rec, err := scanDeposit(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to read deposit records", errors.Wrap(err, "scanning deposit"))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to read deposit records", errors.Wrap(err, "iterating deposits"))
	}
	return records, nil
}

func nullDay(day model.Day) sql.NullString {
	return nullString(day.String())
}

// FetchDepositRecords returns the deposit records relevant to rng: clerk
// records whose transaction occurred in range and branch records whose day
// is in range. With an open range, clerk records whose transaction is
// missing are returned too so they can be reported as orphans.
func (d Datasource) FetchDepositRecords(ctx context.Context, rng model.DateRange) ([]model.DepositRecord, error) {
	ctx, span := otel.Tracer("Deposit").Start(ctx, "Fetching deposit records from db")
	defer span.End()

	from, to := rng.Instants(d.zone())
	records, err := d.queryDeposits(ctx, `
		SELECT d.record_id, d.deposit_key, d.deposited_amount, d.expense_amount, d.recorded_by, d.recorded_at, d.version
		FROM cashbook.deposits d
		LEFT JOIN cashbook.transactions t ON d.level = 'clerk' AND t.transaction_id = d.transaction_id
		WHERE (d.level = 'clerk'
		       AND ($1::timestamptz IS NULL OR t.occurred_at >= $1)
		       AND ($2::timestamptz IS NULL OR t.occurred_at < $2))
		   OR (d.level = 'branch'
		       AND ($3::date IS NULL OR d.day >= $3)
		       AND ($4::date IS NULL OR d.day <= $4))
		ORDER BY d.deposit_key, d.record_id
	`, nullTime(from), nullTime(to), nullDay(rng.From), nullDay(rng.To))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("deposits.count", len(records)))
	return records, nil
}

// FetchDepositsByKeys returns the records stored under any of keys.
func (d Datasource) FetchDepositsByKeys(ctx context.Context, keys []model.DepositKey) ([]model.DepositRecord, error) {
	ctx, span := otel.Tracer("Deposit").Start(ctx, "Fetching deposit records by key from db")
	defer span.End()

	if len(keys) == 0 {
		return []model.DepositRecord{}, nil
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.String()
	}
	span.SetAttributes(attribute.Int("deposits.keys", len(raw)))

	return d.queryDeposits(ctx, `
		SELECT `+depositColumns+`
		FROM cashbook.deposits
		WHERE deposit_key = ANY($1)
		ORDER BY deposit_key, record_id
	`, pq.Array(raw))
}

func (d Datasource) GetDepositRecord(ctx context.Context, key model.DepositKey) (*model.DepositRecord, error) {
	ctx, span := otel.Tracer("Deposit").Start(ctx, "Fetching deposit record from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+depositColumns+`
		FROM cashbook.deposits
		WHERE deposit_key = $1
	`, key.String())

	rec, err := scanDeposit(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Deposit record '%s' not found", key), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to retrieve deposit record", errors.Wrap(err, "fetching deposit"))
	}
	return &rec, nil
}

// UpsertDepositRecord creates the record for rec's key when expectedVersion
// is 0, otherwise overwrites the amounts if the stored version still equals
// expectedVersion. Any mismatch is reported as ErrConflict and nothing is
// written.
func (d Datasource) UpsertDepositRecord(ctx context.Context, rec model.DepositRecord, expectedVersion int64) (*model.DepositRecord, error) {
	ctx, span := otel.Tracer("Deposit").Start(ctx, "Saving deposit record to db")
	defer span.End()
	span.SetAttributes(
		attribute.String("deposit.key", rec.DepositKey.String()),
		attribute.Int64("deposit.expected_version", expectedVersion),
	)

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	var row *sql.Row
	if expectedVersion == 0 {
		if rec.RecordID == "" {
			rec.RecordID = model.GenerateUUIDWithSuffix("dep")
		}
		row = d.Conn.QueryRowContext(ctx, `
			INSERT INTO cashbook.deposits (
				record_id, deposit_key, level, transaction_id, location_key, day,
				deposited_amount, expense_amount, recorded_by, recorded_at, version
			) VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, 1)
			ON CONFLICT (deposit_key) DO NOTHING
			RETURNING `+depositColumns,
			rec.RecordID, rec.DepositKey.String(), string(rec.Level()),
			nullString(rec.TransactionID), nullString(rec.LocationKey), nullDay(rec.Day),
			rec.DepositedAmount, rec.ExpenseAmount, rec.RecordedBy, rec.RecordedAt,
		)
	} else {
		row = d.Conn.QueryRowContext(ctx, `
			UPDATE cashbook.deposits
			SET deposited_amount = $1, expense_amount = $2, recorded_by = $3, recorded_at = $4, version = version + 1
			WHERE deposit_key = $5 AND version = $6
			RETURNING `+depositColumns,
			rec.DepositedAmount, rec.ExpenseAmount, rec.RecordedBy, rec.RecordedAt,
			rec.DepositKey.String(), expectedVersion,
		)
	}

	stored, err := scanDeposit(row)
	if err != nil {
		span.RecordError(err)
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("Deposit record '%s' changed since version %d", rec.DepositKey, expectedVersion), nil)
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Class() == dataExceptionClass {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
				fmt.Sprintf("Deposit record '%s' has amounts the store rejects: %s", rec.DepositKey, pqErr.Message), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "Failed to save deposit record", errors.Wrap(err, "upserting deposit"))
	}
	return &stored, nil
}
