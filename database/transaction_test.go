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
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/dispatchdesk/cashbook/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var txnColumns = []string{"transaction_id", "amount", "payment_kind", "actor_id", "location_key", "occurred_at"}

func TestFetchTransactions_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	lagos, _ := time.LoadLocation("Africa/Lagos")
	ds := Datasource{Conn: db, Zone: lagos}
	occurred := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	rng, err := model.NewDateRange("2024-03-01", "2024-03-02")
	require.NoError(t, err)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, lagos)
	to := time.Date(2024, 3, 3, 0, 0, 0, 0, lagos)

	rows := sqlmock.NewRows(txnColumns).
		AddRow("t1", "150.00", "paid", "a1", "LAG-01", occurred).
		AddRow("t2", "40.50", "cash_on_delivery", nil, "LAG-01", occurred.Add(time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM cashbook.transactions")).
		WithArgs(sql.NullTime{Time: from, Valid: true}, sql.NullTime{Time: to, Valid: true}).
		WillReturnRows(rows)

	txns, err := ds.FetchTransactions(context.Background(), rng)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "t1", txns[0].ID)
	assert.Equal(t, "150", txns[0].Amount.String())
	assert.Equal(t, model.PaymentPaid, txns[0].PaymentKind)
	assert.Equal(t, "a1", txns[0].ActorID)
	assert.Equal(t, "", txns[1].ActorID)
	assert.False(t, txns[1].Attributed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTransactions_OpenRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM cashbook.transactions")).
		WithArgs(sql.NullTime{}, sql.NullTime{}).
		WillReturnRows(sqlmock.NewRows(txnColumns))

	txns, err := ds.FetchTransactions(context.Background(), model.DateRange{})
	require.NoError(t, err)
	assert.NotNil(t, txns)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTransactions_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM cashbook.transactions")).
		WillReturnError(errors.New("connection refused"))

	_, err = ds.FetchTransactions(context.Background(), model.DateRange{})
	assert.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrSourceUnavailable))
	assert.True(t, apierror.IsRetryable(err))
}

func TestFetchTransactions_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	rows := sqlmock.NewRows(txnColumns).AddRow("t1", "not-a-number", "paid", "a1", "LAG-01", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM cashbook.transactions")).WillReturnRows(rows)

	_, err = ds.FetchTransactions(context.Background(), model.DateRange{})
	assert.True(t, apierror.Is(err, apierror.ErrSourceUnavailable))
}

func TestFetchActorTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	rows := sqlmock.NewRows(txnColumns).AddRow("t1", "10.00", "paid", "a1", "LAG-01", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("AND actor_id = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "a1").
		WillReturnRows(rows)

	txns, err := ds.FetchActorTransactions(context.Background(), "a1", model.DateRange{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchLocationTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	rows := sqlmock.NewRows(txnColumns).AddRow("t9", "10.00", "paid", nil, "ABJ-02", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("AND location_key = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "ABJ-02").
		WillReturnRows(rows)

	txns, err := ds.FetchLocationTransactions(context.Background(), "ABJ-02", model.DateRange{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "ABJ-02", txns[0].LocationKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	rows := sqlmock.NewRows(txnColumns).AddRow("t1", "99.99", "paid", "a1", "LAG-01", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE transaction_id = $1")).WithArgs("t1").WillReturnRows(rows)

	txn, err := ds.GetTransaction(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "99.99", txn.Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransaction_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE transaction_id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err = ds.GetTransaction(context.Background(), "missing")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	assert.False(t, apierror.IsRetryable(err))
}
