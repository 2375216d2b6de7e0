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

// PaymentKind is how a parcel was paid for.
type PaymentKind string

const (
	PaymentPaid           PaymentKind = "paid"
	PaymentCashOnDelivery PaymentKind = "cash_on_delivery"
	PaymentContract       PaymentKind = "contract"
	PaymentOther          PaymentKind = "other"
)

// Transaction is a payment-bearing parcel event recorded by order entry.
// The engine never mutates it.
type Transaction struct {
	ID          string          `json:"transaction_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentKind PaymentKind     `json:"payment_kind"`
	ActorID     string          `json:"actor_id,omitempty"`
	LocationKey string          `json:"location_key"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Eligible reports whether the transaction takes part in cash reconciliation.
func (t Transaction) Eligible() bool {
	return t.PaymentKind == PaymentPaid || t.PaymentKind == PaymentCashOnDelivery
}

// Attributed reports whether the transaction can be pinned to a clerk.
func (t Transaction) Attributed() bool {
	return t.ActorID != ""
}
