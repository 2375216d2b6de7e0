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
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRow is one transaction's line in a clerk ledger.
type LedgerRow struct {
	TransactionID string          `json:"transaction_id"`
	Day           Day             `json:"day"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Amount        decimal.Decimal `json:"amount"`
	Deposited     decimal.Decimal `json:"deposited"`
	Expenses      decimal.Decimal `json:"expenses"`
	Net           decimal.Decimal `json:"net"`
}

// EntityLedger is the derived, never persisted position of one clerk or
// branch. CurrentBalance is positive when the entity owes money and
// negative when it has paid in more than it collected.
type EntityLedger struct {
	EntityID       string          `json:"entity_id"`
	Label          string          `json:"label"`
	Level          DepositLevel    `json:"level"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Rows           []LedgerRow     `json:"rows,omitempty"`
}

// BranchDayBucket is one (location, day) cell of a branch ledger.
type BranchDayBucket struct {
	LocationKey    string          `json:"location_key"`
	Day            Day             `json:"day"`
	Collected      decimal.Decimal `json:"collected"`
	Deposited      decimal.Decimal `json:"deposited"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	TransactionIDs []string        `json:"transaction_ids,omitempty"`
}

// BranchLedger pairs a branch's totals with its day buckets in ascending
// day order. Outstanding is the last bucket's running balance.
type BranchLedger struct {
	EntityLedger
	Outstanding decimal.Decimal   `json:"outstanding"`
	Buckets     []BranchDayBucket `json:"buckets"`
}

// Totals aggregates a set of ledgers for dashboard summaries.
type Totals struct {
	Entities  int             `json:"entities"`
	Collected decimal.Decimal `json:"collected"`
	Deposited decimal.Decimal `json:"deposited"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetDebt   decimal.Decimal `json:"net_debt"`
}

// SourceStatus reports whether an upstream record source could be read.
type SourceStatus string

const (
	SourceOK          SourceStatus = "ok"
	SourceUnavailable SourceStatus = "unavailable"
)

type Sources struct {
	Transactions SourceStatus `json:"transactions"`
	Deposits     SourceStatus `json:"deposits"`
}

// Report is the full reconciliation view for one date range. Degraded is
// set whenever one of the sources could not be read; the figures then only
// reflect what was available.
type Report struct {
	Range                 DateRange       `json:"range"`
	Zone                  string          `json:"zone"`
	Clerks                []EntityLedger  `json:"clerks"`
	Branches              []BranchLedger  `json:"branches"`
	ClerkTotals           Totals          `json:"clerk_totals"`
	BranchTotals          Totals          `json:"branch_totals"`
	TotalCollected        decimal.Decimal `json:"total_collected"`
	UnattributedCollected decimal.Decimal `json:"unattributed_collected"`
	Unattributed          []string        `json:"unattributed_transactions,omitempty"`
	OrphanDeposits        []DepositRecord `json:"orphan_deposits,omitempty"`
	Sources               Sources         `json:"sources"`
	Degraded              bool            `json:"degraded"`
}

// ClerkView is one clerk's ledger as served on its own, with the same
// source flags a full report carries.
type ClerkView struct {
	Range    DateRange    `json:"range"`
	Zone     string       `json:"zone"`
	Ledger   EntityLedger `json:"ledger"`
	Sources  Sources      `json:"sources"`
	Degraded bool         `json:"degraded"`
}

// BranchView is ClerkView for one branch.
type BranchView struct {
	Range    DateRange    `json:"range"`
	Zone     string       `json:"zone"`
	Ledger   BranchLedger `json:"ledger"`
	Sources  Sources      `json:"sources"`
	Degraded bool         `json:"degraded"`
}

// DepositResult is what a confirmed deposit write returns: the stored record
// and the owning entity's ledger recomputed after the write. The view is nil
// when the entity has nothing in the requested range or could not be reread.
type DepositResult struct {
	Record DepositRecord `json:"record"`
	Clerk  *ClerkView    `json:"clerk,omitempty"`
	Branch *BranchView   `json:"branch,omitempty"`
}
