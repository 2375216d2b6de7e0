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

// FloorPolicy decides whether a running balance may go below zero.
type FloorPolicy int

const (
	// NoFloor lets a balance go negative. Clerk ledgers use it: a clerk who
	// banked or expensed more than they collected is in credit and that
	// credit has to show.
	NoFloor FloorPolicy = iota
	// FloorAtZero clamps each step at zero. Branch running balances use it:
	// an overpaid day does not carry forward as a discount on later days.
	FloorAtZero
)

// BranchFloor is the floor rule applied to branch running balances.
const BranchFloor = FloorAtZero

func (p FloorPolicy) apply(d decimal.Decimal) decimal.Decimal {
	if p == FloorAtZero && d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Balance is collected minus deposited minus expenses. Positive means debt.
func Balance(collected, deposited, expenses decimal.Decimal) decimal.Decimal {
	return collected.Sub(deposited).Sub(expenses)
}

// RunningBalances sorts the buckets of one location by day and fills in
// RunningBalance as previous + collected - deposited, with floor applied at
// every step. The input slice is not modified.
func RunningBalances(buckets []model.BranchDayBucket, floor FloorPolicy) []model.BranchDayBucket {
	out := make([]model.BranchDayBucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })

	running := decimal.Zero
	for i := range out {
		running = floor.apply(running.Add(out[i].Collected).Sub(out[i].Deposited))
		out[i].RunningBalance = running
	}
	return out
}

// RankClerks orders clerk ledgers by current balance, highest debt first.
// Ties are broken by entity id so the order is stable across runs.
func RankClerks(ledgers []model.EntityLedger) {
	sort.SliceStable(ledgers, func(i, j int) bool {
		if c := ledgers[i].CurrentBalance.Cmp(ledgers[j].CurrentBalance); c != 0 {
			return c > 0
		}
		return ledgers[i].EntityID < ledgers[j].EntityID
	})
}
