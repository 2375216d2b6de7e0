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
	"time"

	"github.com/dispatchdesk/cashbook/model"
)

// Input is everything BuildReport needs. Labels maps actor ids to display
// names; actors missing from it get PlaceholderLabel.
type Input struct {
	Transactions []model.Transaction
	Deposits     []model.DepositRecord
	Range        model.DateRange
	Zone         *time.Location
	Labels       map[string]string
	Sources      model.Sources
}

func (in Input) aggregate(groupBy GroupBy) *Aggregation {
	return Aggregate(in.Transactions, AggregateOptions{GroupBy: groupBy, Range: in.Range, Zone: in.Zone})
}

// BuildReport runs the whole pipeline. It is a pure function: the same
// input always gives the same report, field for field.
func BuildReport(in Input) model.Report {
	deposits := make([]model.DepositRecord, len(in.Deposits))
	copy(deposits, in.Deposits)
	sortDeposits(deposits)

	byActor := in.aggregate(GroupByActor)
	byLocation := in.aggregate(GroupByLocation)

	clerks, orphans := BuildClerkLedgers(byActor, deposits, in.Labels)
	branches := BuildBranchLedgers(byLocation, deposits, in.Range)

	zone := time.UTC
	if in.Zone != nil {
		zone = in.Zone
	}

	report := model.Report{
		Range:                 in.Range,
		Zone:                  zone.String(),
		Clerks:                clerks,
		Branches:              branches,
		ClerkTotals:           WithOrphans(ClerkTotals(clerks), orphans),
		BranchTotals:          BranchTotals(branches),
		TotalCollected:        byLocation.Collected(),
		UnattributedCollected: byActor.UnattributedCollected,
		Unattributed:          byActor.Unattributed,
		OrphanDeposits:        orphans,
		Sources:               in.Sources,
	}
	report.Degraded = in.Sources.Transactions == model.SourceUnavailable ||
		in.Sources.Deposits == model.SourceUnavailable
	return report
}

// BuildClerkLedgers summarises an actor aggregation into one ledger per
// clerk, ranked by debt. It also returns clerk-level deposits that matched
// no aggregated transaction.
func BuildClerkLedgers(agg *Aggregation, deposits []model.DepositRecord, labels map[string]string) ([]model.EntityLedger, []model.DepositRecord) {
	books, orphans := MergeClerks(agg, deposits)

	ledgers := make([]model.EntityLedger, 0, len(books))
	for _, actorID := range sortedKeys(books) {
		ledgers = append(ledgers, clerkLedger(books[actorID], labelFor(labels, actorID)))
	}
	RankClerks(ledgers)
	return ledgers, orphans
}

func clerkLedger(book *ClerkBook, label string) model.EntityLedger {
	l := model.EntityLedger{
		EntityID: book.ActorID,
		Label:    label,
		Level:    model.LevelClerk,
		Rows:     book.Rows,
	}
	for _, row := range book.Rows {
		l.TotalCollected = l.TotalCollected.Add(row.Amount)
		l.TotalDeposited = l.TotalDeposited.Add(row.Deposited)
		l.TotalExpenses = l.TotalExpenses.Add(row.Expenses)
	}
	l.CurrentBalance = Balance(l.TotalCollected, l.TotalDeposited, l.TotalExpenses)
	return l
}

// BuildBranchLedgers summarises a location aggregation into one ledger per
// branch, ordered by location key, each with its floored running balance.
func BuildBranchLedgers(agg *Aggregation, deposits []model.DepositRecord, rng model.DateRange) []model.BranchLedger {
	merged := MergeBranches(agg, deposits, rng)

	out := make([]model.BranchLedger, 0, len(merged))
	for _, location := range sortedKeys(merged) {
		out = append(out, branchLedger(location, merged[location]))
	}
	return out
}

func branchLedger(location string, cells []model.BranchDayBucket) model.BranchLedger {
	buckets := RunningBalances(cells, BranchFloor)
	bl := model.BranchLedger{
		EntityLedger: model.EntityLedger{
			EntityID: location,
			Label:    branchLabel(location),
			Level:    model.LevelBranch,
		},
		Buckets: buckets,
	}
	for _, b := range buckets {
		bl.TotalCollected = bl.TotalCollected.Add(b.Collected)
		bl.TotalDeposited = bl.TotalDeposited.Add(b.Deposited)
	}
	bl.CurrentBalance = Balance(bl.TotalCollected, bl.TotalDeposited, bl.TotalExpenses)
	if n := len(buckets); n > 0 {
		bl.Outstanding = buckets[n-1].RunningBalance
	}
	return bl
}

// ClerkLedgerFor builds the ledger of a single actor. in may hold only that
// actor's transactions and their deposits; the result is the same ledger
// BuildReport would produce for the actor from the full data set. The
// boolean is false when the actor has nothing in range.
func ClerkLedgerFor(in Input, actorID string) (model.EntityLedger, bool) {
	txns := make([]model.Transaction, 0, len(in.Transactions))
	for _, txn := range in.Transactions {
		if txn.ActorID == actorID {
			txns = append(txns, txn)
		}
	}
	in.Transactions = txns
	books, _ := MergeClerks(in.aggregate(GroupByActor), in.Deposits)
	book, ok := books[actorID]
	if !ok {
		return model.EntityLedger{}, false
	}
	return clerkLedger(book, labelFor(in.Labels, actorID)), true
}

// BranchLedgerFor is ClerkLedgerFor for one location.
func BranchLedgerFor(in Input, location string) (model.BranchLedger, bool) {
	txns := make([]model.Transaction, 0, len(in.Transactions))
	for _, txn := range in.Transactions {
		if txn.LocationKey == location {
			txns = append(txns, txn)
		}
	}
	deposits := make([]model.DepositRecord, 0, len(in.Deposits))
	for _, rec := range in.Deposits {
		if rec.Level() == model.LevelBranch && rec.LocationKey == location {
			deposits = append(deposits, rec)
		}
	}
	in.Transactions = txns
	merged := MergeBranches(in.aggregate(GroupByLocation), deposits, in.Range)
	cells, ok := merged[location]
	if !ok {
		return model.BranchLedger{}, false
	}
	return branchLedger(location, cells), true
}

// ClerkTotals sums clerk ledgers. NetDebt is the plain sum of balances, so
// a clerk in credit offsets a clerk in debt.
func ClerkTotals(ledgers []model.EntityLedger) model.Totals {
	t := model.Totals{Entities: len(ledgers)}
	for _, l := range ledgers {
		t.Collected = t.Collected.Add(l.TotalCollected)
		t.Deposited = t.Deposited.Add(l.TotalDeposited)
		t.Expenses = t.Expenses.Add(l.TotalExpenses)
		t.NetDebt = t.NetDebt.Add(l.CurrentBalance)
	}
	return t
}

// WithOrphans folds clerk-level deposits that matched no transaction into
// t. They count as banked money and expenses but collected nothing, so
// they lower NetDebt.
func WithOrphans(t model.Totals, orphans []model.DepositRecord) model.Totals {
	for _, rec := range orphans {
		t.Deposited = t.Deposited.Add(rec.DepositedAmount)
		t.Expenses = t.Expenses.Add(rec.ExpenseAmount)
		t.NetDebt = t.NetDebt.Sub(rec.DepositedAmount).Sub(rec.ExpenseAmount)
	}
	return t
}

// BranchTotals sums branch ledgers. NetDebt is the sum of the outstanding
// running balances, which carry the zero floor.
func BranchTotals(branches []model.BranchLedger) model.Totals {
	t := model.Totals{Entities: len(branches)}
	for _, b := range branches {
		t.Collected = t.Collected.Add(b.TotalCollected)
		t.Deposited = t.Deposited.Add(b.TotalDeposited)
		t.Expenses = t.Expenses.Add(b.TotalExpenses)
		t.NetDebt = t.NetDebt.Add(b.Outstanding)
	}
	return t
}

// ActorIDs lists the distinct attributed actors of txns, sorted. Callers
// use it to resolve labels before BuildReport.
func ActorIDs(txns []model.Transaction) []string {
	set := make(map[string]struct{})
	for _, txn := range txns {
		if txn.Attributed() {
			set[txn.ActorID] = struct{}{}
		}
	}
	return sortedKeys(set)
}
