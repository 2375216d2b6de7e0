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

package mocks

import (
	"context"

	"github.com/dispatchdesk/cashbook/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Transaction methods

func (m *MockDataSource) FetchTransactions(ctx context.Context, rng model.DateRange) ([]model.Transaction, error) {
	args := m.Called(ctx, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockDataSource) FetchActorTransactions(ctx context.Context, actorID string, rng model.DateRange) ([]model.Transaction, error) {
	args := m.Called(ctx, actorID, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockDataSource) FetchLocationTransactions(ctx context.Context, locationKey string, rng model.DateRange) ([]model.Transaction, error) {
	args := m.Called(ctx, locationKey, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

// Deposit methods

func (m *MockDataSource) FetchDepositRecords(ctx context.Context, rng model.DateRange) ([]model.DepositRecord, error) {
	args := m.Called(ctx, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DepositRecord), args.Error(1)
}

func (m *MockDataSource) FetchDepositsByKeys(ctx context.Context, keys []model.DepositKey) ([]model.DepositRecord, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DepositRecord), args.Error(1)
}

func (m *MockDataSource) GetDepositRecord(ctx context.Context, key model.DepositKey) (*model.DepositRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DepositRecord), args.Error(1)
}

func (m *MockDataSource) UpsertDepositRecord(ctx context.Context, rec model.DepositRecord, expectedVersion int64) (*model.DepositRecord, error) {
	args := m.Called(ctx, rec, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DepositRecord), args.Error(1)
}

// Actor methods

func (m *MockDataSource) GetActorName(ctx context.Context, actorID string) (string, error) {
	args := m.Called(ctx, actorID)
	return args.String(0), args.Error(1)
}
