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

// Package ledger is the cash reconciliation pipeline: it aggregates
// payment transactions into per-entity day buckets, merges them with the
// persisted deposit records, derives balances and builds the report views.
//
// Everything here is a pure function of its inputs. Fetching and writing
// records is the caller's job.
package ledger

import (
	"sort"

	"github.com/dispatchdesk/cashbook/model"
)

// PlaceholderLabel is the label used for a clerk whose name could not be
// resolved.
func PlaceholderLabel(actorID string) string {
	return "actor-" + actorID
}

const unassignedLocationLabel = "(no location)"

func labelFor(labels map[string]string, actorID string) string {
	if name, ok := labels[actorID]; ok && name != "" {
		return name
	}
	return PlaceholderLabel(actorID)
}

func branchLabel(locationKey string) string {
	if locationKey == "" {
		return unassignedLocationLabel
	}
	return locationKey
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortDeposits orders records by key then record id so that anything
// derived from them is independent of the order the source returned.
func sortDeposits(records []model.DepositRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ki, kj := records[i].DepositKey.String(), records[j].DepositKey.String()
		if ki != kj {
			return ki < kj
		}
		return records[i].RecordID < records[j].RecordID
	})
}
