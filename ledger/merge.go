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

package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dispatchdesk/cashbook/model"
)

// ClerkBook is the merged, not yet summarised, ledger of one actor.
type ClerkBook struct {
	ActorID string
	Rows    []model.LedgerRow
}

type depositSum struct {
	deposited decimal.Decimal
	expenses  decimal.Decimal
}

// MergeClerks joins an actor aggregation with clerk-level deposit records.
// Transactions without a record get zero deposited and zero expenses.
// Several records for one transaction are summed. Clerk-level records whose
// transaction is not in the aggregation are returned as orphans so the
// caller can surface them.
func MergeClerks(agg *Aggregation, deposits []model.DepositRecord) (map[string]*ClerkBook, []model.DepositRecord) {
	byTxn := make(map[string]depositSum)
	var orphans []model.DepositRecord
	for _, rec := range deposits {
		if rec.Level() != model.LevelClerk {
			continue
		}
		if _, ok := agg.Transactions[rec.TransactionID]; !ok {
			orphans = append(orphans, rec)
			continue
		}
		s := byTxn[rec.TransactionID]
		s.deposited = s.deposited.Add(rec.DepositedAmount)
		s.expenses = s.expenses.Add(rec.ExpenseAmount)
		byTxn[rec.TransactionID] = s
	}

	books := make(map[string]*ClerkBook)
	for _, b := range agg.Buckets {
		book, ok := books[b.EntityID]
		if !ok {
			book = &ClerkBook{ActorID: b.EntityID}
			books[b.EntityID] = book
		}
		for _, id := range b.TransactionIDs {
			txn := agg.Transactions[id]
			s := byTxn[id]
			book.Rows = append(book.Rows, model.LedgerRow{
				TransactionID: id,
				Day:           b.Day,
				OccurredAt:    txn.OccurredAt,
				Amount:        txn.Amount,
				Deposited:     s.deposited,
				Expenses:      s.expenses,
				Net:           Balance(txn.Amount, s.deposited, s.expenses),
			})
		}
	}

	for _, book := range books {
		sortRowsRecentFirst(book.Rows)
	}
	sortDeposits(orphans)
	return books, orphans
}

// MergeBranches joins a location aggregation with branch-level deposit
// records. Duplicate records for one (location, day) are summed, and a
// deposit for a day without collections still gets a bucket with zero
// collected. Deposits outside rng are ignored. The buckets come back
// unordered and without running balances; see RunningBalances.
func MergeBranches(agg *Aggregation, deposits []model.DepositRecord, rng model.DateRange) map[string][]model.BranchDayBucket {
	cells := make(map[BucketKey]*model.BranchDayBucket)
	for k, b := range agg.Buckets {
		cells[k] = &model.BranchDayBucket{
			LocationKey:    b.EntityID,
			Day:            b.Day,
			Collected:      b.Collected,
			TransactionIDs: b.TransactionIDs,
		}
	}

	for _, rec := range deposits {
		if rec.Level() != model.LevelBranch || !rng.Contains(rec.Day) {
			continue
		}
		k := BucketKey{EntityID: rec.LocationKey, Day: rec.Day}
		cell, ok := cells[k]
		if !ok {
			cell = &model.BranchDayBucket{LocationKey: rec.LocationKey, Day: rec.Day}
			cells[k] = cell
		}
		cell.Deposited = cell.Deposited.Add(rec.DepositedAmount)
	}

	out := make(map[string][]model.BranchDayBucket)
	for k, cell := range cells {
		out[k.EntityID] = append(out[k.EntityID], *cell)
	}
	return out
}

func sortRowsRecentFirst(rows []model.LedgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].OccurredAt.Equal(rows[j].OccurredAt) {
			return rows[i].OccurredAt.After(rows[j].OccurredAt)
		}
		return rows[i].TransactionID < rows[j].TransactionID
	})
}
