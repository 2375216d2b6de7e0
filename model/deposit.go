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

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DepositLevel tells which ledger a deposit record belongs to.
type DepositLevel string

const (
	LevelClerk  DepositLevel = "clerk"
	LevelBranch DepositLevel = "branch"
)

const (
	clerkKeyPrefix  = "txn:"
	branchKeyPrefix = "branch:"
)

// DepositKey identifies the single logical deposit record for either one
// transaction (clerk level) or one location and day (branch level).
type DepositKey struct {
	TransactionID string `json:"transaction_id,omitempty"`
	LocationKey   string `json:"location_key,omitempty"`
	Day           Day    `json:"day,omitempty"`
}

func TransactionKey(transactionID string) DepositKey {
	return DepositKey{TransactionID: transactionID}
}

func BranchKey(locationKey string, day Day) DepositKey {
	return DepositKey{LocationKey: locationKey, Day: day}
}

func (k DepositKey) Level() DepositLevel {
	if k.TransactionID != "" {
		return LevelClerk
	}
	return LevelBranch
}

// String is the canonical storage form: txn:<id> or branch:<location>:<day>.
func (k DepositKey) String() string {
	if k.Level() == LevelClerk {
		return clerkKeyPrefix + k.TransactionID
	}
	return branchKeyPrefix + k.LocationKey + ":" + k.Day.String()
}

// ParseDepositKey is the inverse of DepositKey.String. Location keys may
// contain colons, the day is always the last segment.
func ParseDepositKey(s string) (DepositKey, error) {
	switch {
	case strings.HasPrefix(s, clerkKeyPrefix):
		id := strings.TrimPrefix(s, clerkKeyPrefix)
		if id == "" {
			return DepositKey{}, fmt.Errorf("deposit key %q has no transaction id", s)
		}
		return TransactionKey(id), nil
	case strings.HasPrefix(s, branchKeyPrefix):
		rest := strings.TrimPrefix(s, branchKeyPrefix)
		i := strings.LastIndex(rest, ":")
		if i <= 0 {
			return DepositKey{}, fmt.Errorf("deposit key %q has no location or day", s)
		}
		day, err := ParseDay(rest[i+1:])
		if err != nil {
			return DepositKey{}, err
		}
		return BranchKey(rest[:i], day), nil
	}
	return DepositKey{}, fmt.Errorf("unknown deposit key %q", s)
}

// DepositRecord is cash banked (and, for clerks, expenses approved) against
// one DepositKey. Version starts at 1 and grows by one on every write.
type DepositRecord struct {
	RecordID string `json:"record_id"`
	DepositKey
	DepositedAmount decimal.Decimal `json:"deposited_amount"`
	ExpenseAmount   decimal.Decimal `json:"expense_amount"`
	RecordedBy      string          `json:"recorded_by"`
	RecordedAt      time.Time       `json:"recorded_at"`
	Version         int64           `json:"version"`
}
