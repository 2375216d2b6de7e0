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

	"github.com/dispatchdesk/cashbook/model"
)

// IDataSource is everything the reconciliation engine reads and writes.
// Transactions are read-only here; order entry owns them.
type IDataSource interface {
	transaction
	deposit
	actor
}

type transaction interface {
	FetchTransactions(ctx context.Context, rng model.DateRange) ([]model.Transaction, error)                            // All transactions in range
	FetchActorTransactions(ctx context.Context, actorID string, rng model.DateRange) ([]model.Transaction, error)       // One clerk's transactions
	FetchLocationTransactions(ctx context.Context, locationKey string, rng model.DateRange) ([]model.Transaction, error) // One branch's transactions
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
}

type deposit interface {
	FetchDepositRecords(ctx context.Context, rng model.DateRange) ([]model.DepositRecord, error)
	FetchDepositsByKeys(ctx context.Context, keys []model.DepositKey) ([]model.DepositRecord, error)
	GetDepositRecord(ctx context.Context, key model.DepositKey) (*model.DepositRecord, error)
	// UpsertDepositRecord writes rec if the stored version still equals
	// expectedVersion (0 means "no record yet") and returns what was stored.
	UpsertDepositRecord(ctx context.Context, rec model.DepositRecord, expectedVersion int64) (*model.DepositRecord, error)
}

type actor interface {
	GetActorName(ctx context.Context, actorID string) (string, error)
}
