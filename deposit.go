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

package cashbook

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/dispatchdesk/cashbook/internal/apierror"
	redlock "github.com/dispatchdesk/cashbook/internal/lock"
	"github.com/dispatchdesk/cashbook/internal/notification"
	"github.com/dispatchdesk/cashbook/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// DepositInput edits the clerk-level deposit record of one transaction.
// ExpectedVersion, when set, is the version the caller last saw (0 for "no
// record yet"); a stale value is rejected with a conflict. When nil the
// current stored version is used.
type DepositInput struct {
	TransactionID   string
	DepositedAmount float64
	ExpenseAmount   float64
	RecordedBy      string
	ExpectedVersion *int64
	Range           model.DateRange
}

// BranchDepositInput edits the branch-level deposit record of one location
// and day. Branches carry no expenses.
type BranchDepositInput struct {
	LocationKey     string
	Day             string
	DepositedAmount float64
	RecordedBy      string
	ExpectedVersion *int64
	Range           model.DateRange
}

// validateAmount rejects NaN, infinities, negative values and amounts too
// large to store, and returns the amount rounded to currency precision.
func validateAmount(field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, apierror.NewValidationError(field, v, field+" must be a finite number")
	}
	if v < 0 {
		return decimal.Zero, apierror.NewValidationError(field, v, field+" must not be negative")
	}
	amount := model.RoundMoney(decimal.NewFromFloat(v))
	if amount.GreaterThan(model.MaxAmount) {
		return decimal.Zero, apierror.NewValidationError(field, v, field+" must not exceed "+model.MaxAmount.StringFixed(model.CurrencyPrecision))
	}
	return amount, nil
}

func (c *Cashbook) lockDeposit(ctx context.Context, key model.DepositKey) (*redlock.Locker, error) {
	locker := redlock.NewLocker(c.redis, redlock.DepositLockKey(key.String()), model.GenerateUUIDWithSuffix("loc"))
	err := locker.WaitLock(ctx, c.conf.LockTimeout(), c.conf.LockTimeout())
	switch {
	case err == nil:
		return locker, nil
	case redlock.IsTimeout(err):
		return nil, apierror.NewAPIError(apierror.ErrConflict, "deposit record "+key.String()+" is being edited, retry shortly", nil)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "could not lock deposit record "+key.String(), err)
	}
}

func unlock(ctx context.Context, locker *redlock.Locker) {
	// The write context may already be done; release with a fresh one.
	unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := locker.Unlock(unlockCtx); err != nil {
		logrus.WithError(err).WithField("key", locker.Key()).Warn("failed to release deposit lock")
	}
}

func (c *Cashbook) currentVersion(ctx context.Context, key model.DepositKey, expected *int64) (int64, error) {
	if expected != nil {
		if *expected < 0 {
			return 0, apierror.NewValidationError("expected_version", *expected, "expected_version must not be negative")
		}
		return *expected, nil
	}
	existing, err := c.datasource.GetDepositRecord(ctx, key)
	if apierror.Is(err, apierror.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return existing.Version, nil
}

// upsert writes rec under the per-key lock with a version check and returns
// the stored record. Nothing is cached or recomputed here.
func (c *Cashbook) upsert(ctx context.Context, rec model.DepositRecord, expected *int64) (*model.DepositRecord, error) {
	started := time.Now()
	level := string(rec.Level())

	locker, err := c.lockDeposit(ctx, rec.DepositKey)
	if err != nil {
		c.metrics.ObserveDepositWrite(level, "locked", time.Since(started).Seconds())
		return nil, err
	}
	defer unlock(ctx, locker)

	version, err := c.currentVersion(ctx, rec.DepositKey, expected)
	if err != nil {
		c.metrics.ObserveDepositWrite(level, "error", time.Since(started).Seconds())
		return nil, err
	}

	// The version read may have eaten into the lock TTL. Renew it so the
	// write runs fully under the lock, or give up if it already lapsed.
	if err := locker.ExtendLock(ctx, c.conf.LockTimeout()); err != nil {
		c.metrics.ObserveDepositWrite(level, "locked", time.Since(started).Seconds())
		logrus.WithError(err).WithField("key", rec.DepositKey.String()).Warn("deposit lock lapsed before write")
		return nil, apierror.NewAPIError(apierror.ErrConflict, "deposit record "+rec.DepositKey.String()+" lock expired, retry shortly", nil)
	}

	stored, err := c.datasource.UpsertDepositRecord(ctx, rec, version)
	if err != nil {
		outcome := "error"
		switch apierror.CodeOf(err) {
		case apierror.ErrConflict:
			outcome = "conflict"
		case apierror.ErrInvalidInput:
			outcome = "invalid"
		default:
			notification.NotifyError(err)
		}
		c.metrics.ObserveDepositWrite(level, outcome, time.Since(started).Seconds())
		return nil, err
	}
	c.metrics.ObserveDepositWrite(level, "ok", time.Since(started).Seconds())

	logrus.WithFields(logrus.Fields{
		"key":       stored.DepositKey.String(),
		"version":   stored.Version,
		"deposited": stored.DepositedAmount.String(),
		"expenses":  stored.ExpenseAmount.String(),
		"by":        stored.RecordedBy,
	}).Info("deposit record saved")
	return stored, nil
}

// withConfirmed replaces whatever the reread returned for the confirmed
// record's key with the confirmed record itself.
func withConfirmed(records []model.DepositRecord, confirmed model.DepositRecord) []model.DepositRecord {
	out := make([]model.DepositRecord, 0, len(records)+1)
	for _, rec := range records {
		if rec.DepositKey == confirmed.DepositKey {
			continue
		}
		out = append(out, rec)
	}
	return append(out, confirmed)
}

// RecordTransactionDeposit sets the deposited and expense amounts recorded
// against one transaction and returns the stored record together with the
// owning clerk's ledger, recomputed from that clerk's data only. When the
// write fails nothing is recomputed.
func (c *Cashbook) RecordTransactionDeposit(ctx context.Context, in DepositInput) (*model.DepositResult, error) {
	ctx, span := tracer.Start(ctx, "Recording transaction deposit")
	defer span.End()

	in.TransactionID = strings.TrimSpace(in.TransactionID)
	if in.TransactionID == "" {
		return nil, apierror.NewValidationError("transaction_id", in.TransactionID, "transaction_id is required")
	}
	deposited, err := validateAmount("deposited_amount", in.DepositedAmount)
	if err != nil {
		return nil, err
	}
	expenses, err := validateAmount("expense_amount", in.ExpenseAmount)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", in.TransactionID))

	writeCtx, cancel := context.WithTimeout(ctx, c.conf.WriteTimeout())
	defer cancel()

	txn, err := c.datasource.GetTransaction(writeCtx, in.TransactionID)
	if err != nil {
		return nil, err
	}
	if !txn.Eligible() {
		return nil, apierror.NewValidationError("transaction_id", in.TransactionID, "transaction payment kind "+string(txn.PaymentKind)+" is not reconciled")
	}
	if !txn.Attributed() {
		return nil, apierror.NewValidationError("transaction_id", in.TransactionID, "transaction has no actor, record the deposit at branch level")
	}

	stored, err := c.upsert(writeCtx, model.DepositRecord{
		DepositKey:      model.TransactionKey(txn.ID),
		DepositedAmount: deposited,
		ExpenseAmount:   expenses,
		RecordedBy:      in.RecordedBy,
		RecordedAt:      time.Now().UTC(),
	}, in.ExpectedVersion)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &model.DepositResult{Record: *stored}
	result.Clerk = c.recomputeClerk(ctx, txn.ActorID, in.Range, *stored)
	return result, nil
}

// recomputeClerk rereads one clerk and rebuilds its ledger. Read failures
// leave the view nil; the write itself is already confirmed.
func (c *Cashbook) recomputeClerk(ctx context.Context, actorID string, rng model.DateRange, confirmed model.DepositRecord) *model.ClerkView {
	fetchCtx, cancel := context.WithTimeout(ctx, c.conf.FetchTimeout())
	defer cancel()

	txns, err := c.datasource.FetchActorTransactions(fetchCtx, actorID, rng)
	if err != nil {
		logrus.WithError(err).WithField("actor_id", actorID).Warn("could not reread clerk after deposit write")
		return nil
	}
	sources := model.Sources{Transactions: model.SourceOK, Deposits: model.SourceOK}
	deposits, err := c.datasource.FetchDepositsByKeys(fetchCtx, depositKeysOf(txns))
	if err != nil {
		logrus.WithError(err).WithField("actor_id", actorID).Warn("could not reread clerk deposits after deposit write")
		sources.Deposits = model.SourceUnavailable
		deposits = nil
	}
	if sources.Deposits == model.SourceOK {
		deposits = withConfirmed(deposits, confirmed)
	}

	view, err := c.clerkView(ctx, actorID, rng, txns, deposits, sources)
	if err != nil {
		return nil
	}
	return view
}

// RecordBranchDeposit sets the amount a branch banked for one day and
// returns the stored record with that branch's recomputed running balance.
func (c *Cashbook) RecordBranchDeposit(ctx context.Context, in BranchDepositInput) (*model.DepositResult, error) {
	ctx, span := tracer.Start(ctx, "Recording branch deposit")
	defer span.End()

	in.LocationKey = strings.TrimSpace(in.LocationKey)
	if in.LocationKey == "" {
		return nil, apierror.NewValidationError("location_key", in.LocationKey, "location_key is required")
	}
	day, err := model.ParseDay(in.Day)
	if err != nil {
		return nil, apierror.NewValidationError("day", in.Day, err.Error())
	}
	deposited, err := validateAmount("deposited_amount", in.DepositedAmount)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("location.key", in.LocationKey), attribute.String("day", day.String()))

	writeCtx, cancel := context.WithTimeout(ctx, c.conf.WriteTimeout())
	defer cancel()

	stored, err := c.upsert(writeCtx, model.DepositRecord{
		DepositKey:      model.BranchKey(in.LocationKey, day),
		DepositedAmount: deposited,
		ExpenseAmount:   decimal.Zero,
		RecordedBy:      in.RecordedBy,
		RecordedAt:      time.Now().UTC(),
	}, in.ExpectedVersion)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &model.DepositResult{Record: *stored}
	result.Branch = c.recomputeBranch(ctx, in.LocationKey, in.Range, *stored)
	return result, nil
}

func (c *Cashbook) recomputeBranch(ctx context.Context, locationKey string, rng model.DateRange, confirmed model.DepositRecord) *model.BranchView {
	fetchCtx, cancel := context.WithTimeout(ctx, c.conf.FetchTimeout())
	defer cancel()

	txns, err := c.datasource.FetchLocationTransactions(fetchCtx, locationKey, rng)
	if err != nil {
		logrus.WithError(err).WithField("location", locationKey).Warn("could not reread branch after deposit write")
		return nil
	}
	sources := model.Sources{Transactions: model.SourceOK, Deposits: model.SourceOK}
	deposits, err := c.datasource.FetchDepositRecords(fetchCtx, rng)
	if err != nil {
		logrus.WithError(err).WithField("location", locationKey).Warn("could not reread branch deposits after deposit write")
		sources.Deposits = model.SourceUnavailable
		deposits = nil
	} else {
		deposits = withConfirmed(deposits, confirmed)
	}

	view, err := c.branchView(locationKey, rng, txns, deposits, sources)
	if err != nil {
		return nil
	}
	return view
}
