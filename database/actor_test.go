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
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActorName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM cashbook.actors")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Adaeze"))

	name, err := ds.GetActorName(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Adaeze", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActorName_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM cashbook.actors")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = ds.GetActorName(context.Background(), "ghost")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}
