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
	"time"

	"github.com/shopspring/decimal"

	"github.com/dispatchdesk/cashbook/model"
)

// GroupBy selects the entity a transaction is bucketed under.
type GroupBy int

const (
	GroupByActor GroupBy = iota
	GroupByLocation
)

// BucketKey identifies one (entity, reporting day) cell.
type BucketKey struct {
	EntityID string
	Day      model.Day
}

// Bucket is the collected subtotal of one (entity, day) cell.
type Bucket struct {
	EntityID       string
	Day            model.Day
	Collected      decimal.Decimal
	TransactionIDs []string
}

// AggregateOptions configures Aggregate. A nil Zone means UTC.
type AggregateOptions struct {
	GroupBy GroupBy
	Range   model.DateRange
	Zone    *time.Location
}

// Aggregation is the output of Aggregate.
type Aggregation struct {
	GroupBy GroupBy
	Buckets map[BucketKey]*Bucket
	// Transactions holds every transaction that landed in a bucket.
	Transactions map[string]model.Transaction
	// Unattributed lists eligible in-range transactions that had no actor
	// when grouping by actor. They are not in any bucket.
	Unattributed          []string
	UnattributedCollected decimal.Decimal
	Ineligible            int
	OutOfRange            int
	Duplicates            int
}

// Aggregate groups eligible transactions inside opts.Range by entity and
// reporting day. A transaction id seen twice is only counted the first time.
func Aggregate(txns []model.Transaction, opts AggregateOptions) *Aggregation {
	agg := &Aggregation{
		GroupBy:      opts.GroupBy,
		Buckets:      make(map[BucketKey]*Bucket),
		Transactions: make(map[string]model.Transaction),
	}
	seen := make(map[string]struct{}, len(txns))

	for _, txn := range txns {
		if _, dup := seen[txn.ID]; dup {
			agg.Duplicates++
			continue
		}
		seen[txn.ID] = struct{}{}

		if !txn.Eligible() {
			agg.Ineligible++
			continue
		}
		day := model.DayOf(txn.OccurredAt, opts.Zone)
		if !opts.Range.Contains(day) {
			agg.OutOfRange++
			continue
		}

		entity := txn.LocationKey
		if opts.GroupBy == GroupByActor {
			if !txn.Attributed() {
				agg.Unattributed = append(agg.Unattributed, txn.ID)
				agg.UnattributedCollected = agg.UnattributedCollected.Add(txn.Amount)
				continue
			}
			entity = txn.ActorID
		}

		key := BucketKey{EntityID: entity, Day: day}
		b, ok := agg.Buckets[key]
		if !ok {
			b = &Bucket{EntityID: entity, Day: day}
			agg.Buckets[key] = b
		}
		b.Collected = b.Collected.Add(txn.Amount)
		b.TransactionIDs = append(b.TransactionIDs, txn.ID)
		agg.Transactions[txn.ID] = txn
	}

	for _, b := range agg.Buckets {
		sort.Strings(b.TransactionIDs)
	}
	sort.Strings(agg.Unattributed)
	return agg
}

// Entities returns the entity ids that own at least one bucket, sorted.
func (a *Aggregation) Entities() []string {
	set := make(map[string]struct{})
	for k := range a.Buckets {
		set[k.EntityID] = struct{}{}
	}
	return sortedKeys(set)
}

// BucketsFor returns the buckets of one entity in ascending day order.
func (a *Aggregation) BucketsFor(entityID string) []*Bucket {
	var out []*Bucket
	for k, b := range a.Buckets {
		if k.EntityID == entityID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// Collected is the sum over every bucket.
func (a *Aggregation) Collected() decimal.Decimal {
	total := decimal.Zero
	for _, b := range a.Buckets {
		total = total.Add(b.Collected)
	}
	return total
}
