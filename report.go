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
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/dispatchdesk/cashbook/internal/notification"
	"github.com/dispatchdesk/cashbook/ledger"
	"github.com/dispatchdesk/cashbook/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	sourceTransactions = "transactions"
	sourceDeposits     = "deposits"
)

type fetchTransactions func(ctx context.Context) ([]model.Transaction, error)
type fetchDeposits func(ctx context.Context) ([]model.DepositRecord, error)

// retry runs op until it succeeds, fails permanently or the configured
// number of retries is spent. Only retryable API errors are retried.
func (c *Cashbook) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	retries := c.conf.FetchRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !apierror.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// fetchSources reads both record streams concurrently under the fetch
// timeout. A single failing source is reported in the returned Sources; when
// both fail, or ctx itself is done, nothing is returned but the error.
func (c *Cashbook) fetchSources(ctx context.Context, txnsFn fetchTransactions, depsFn fetchDeposits) ([]model.Transaction, []model.DepositRecord, model.Sources, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.conf.FetchTimeout())
	defer cancel()

	var wg sync.WaitGroup
	var txns []model.Transaction
	var deposits []model.DepositRecord
	var txnErr, depErr error
	sources := model.Sources{Transactions: model.SourceOK, Deposits: model.SourceOK}

	wg.Add(2)
	go func() {
		defer wg.Done()
		txnErr = c.retry(fetchCtx, func() error {
			var err error
			txns, err = txnsFn(fetchCtx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		depErr = c.retry(fetchCtx, func() error {
			var err error
			deposits, err = depsFn(fetchCtx)
			return err
		})
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, sources, err
	}

	if txnErr != nil {
		logrus.WithError(txnErr).Warn("transactions source unavailable")
		c.metrics.ObserveSourceFailure(sourceTransactions)
		sources.Transactions = model.SourceUnavailable
		txns = nil
	}
	if depErr != nil {
		logrus.WithError(depErr).Warn("deposits source unavailable")
		c.metrics.ObserveSourceFailure(sourceDeposits)
		sources.Deposits = model.SourceUnavailable
		deposits = nil
	}
	if txnErr != nil && depErr != nil {
		return nil, nil, sources, apierror.NewAPIError(apierror.ErrSourceUnavailable, "transactions and deposits could not be loaded", nil)
	}
	return txns, deposits, sources, nil
}

func rangeLabel(rng model.DateRange) string {
	from, to := rng.From.String(), rng.To.String()
	if from == "" {
		from = "*"
	}
	if to == "" {
		to = "*"
	}
	return from + ".." + to
}

func (c *Cashbook) notifyDegraded(rng model.DateRange, sources model.Sources) {
	notification.NotifyDegraded(rangeLabel(rng), string(sources.Transactions), string(sources.Deposits))
}

// Report reconciles every clerk and branch over rng.
func (c *Cashbook) Report(ctx context.Context, rng model.DateRange) (*model.Report, error) {
	ctx, span := tracer.Start(ctx, "Building reconciliation report")
	defer span.End()
	started := time.Now()

	txns, deposits, sources, err := c.fetchSources(ctx,
		func(ctx context.Context) ([]model.Transaction, error) {
			return c.datasource.FetchTransactions(ctx, rng)
		},
		func(ctx context.Context) ([]model.DepositRecord, error) {
			return c.datasource.FetchDepositRecords(ctx, rng)
		},
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := ledger.BuildReport(ledger.Input{
		Transactions: txns,
		Deposits:     deposits,
		Range:        rng,
		Zone:         c.zone,
		Labels:       c.names.Labels(ctx, ledger.ActorIDs(txns)),
		Sources:      sources,
	})

	if len(report.Unattributed) > 0 {
		logrus.WithFields(logrus.Fields{
			"count":     len(report.Unattributed),
			"collected": report.UnattributedCollected.String(),
		}).Warn("transactions without an actor left out of clerk ledgers")
	}
	if report.Degraded {
		c.notifyDegraded(rng, sources)
	}
	c.metrics.ObserveReport(report.Degraded, time.Since(started).Seconds(), len(report.Unattributed), len(report.OrphanDeposits))

	span.SetAttributes(
		attribute.Int("report.clerks", len(report.Clerks)),
		attribute.Int("report.branches", len(report.Branches)),
		attribute.Bool("report.degraded", report.Degraded),
	)
	return &report, nil
}

func depositKeysOf(txns []model.Transaction) []model.DepositKey {
	keys := make([]model.DepositKey, 0, len(txns))
	for _, txn := range txns {
		keys = append(keys, model.TransactionKey(txn.ID))
	}
	return keys
}

func (c *Cashbook) zoneName() string {
	return c.zone.String()
}

// ClerkLedger reconciles a single clerk over rng. Only that clerk's
// transactions and their deposit records are read.
func (c *Cashbook) ClerkLedger(ctx context.Context, actorID string, rng model.DateRange) (*model.ClerkView, error) {
	ctx, span := tracer.Start(ctx, "Building clerk ledger")
	defer span.End()
	span.SetAttributes(attribute.String("actor.id", actorID))

	fetchCtx, cancel := context.WithTimeout(ctx, c.conf.FetchTimeout())
	defer cancel()

	var txns []model.Transaction
	err := c.retry(fetchCtx, func() error {
		var err error
		txns, err = c.datasource.FetchActorTransactions(fetchCtx, actorID, rng)
		return err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		c.metrics.ObserveSourceFailure(sourceTransactions)
		return nil, err
	}

	sources := model.Sources{Transactions: model.SourceOK, Deposits: model.SourceOK}
	var deposits []model.DepositRecord
	err = c.retry(fetchCtx, func() error {
		var err error
		deposits, err = c.datasource.FetchDepositsByKeys(fetchCtx, depositKeysOf(txns))
		return err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		logrus.WithError(err).WithField("actor_id", actorID).Warn("deposits source unavailable")
		c.metrics.ObserveSourceFailure(sourceDeposits)
		sources.Deposits = model.SourceUnavailable
		deposits = nil
	}

	return c.clerkView(ctx, actorID, rng, txns, deposits, sources)
}

func (c *Cashbook) clerkView(ctx context.Context, actorID string, rng model.DateRange, txns []model.Transaction, deposits []model.DepositRecord, sources model.Sources) (*model.ClerkView, error) {
	l, ok := ledger.ClerkLedgerFor(ledger.Input{
		Transactions: txns,
		Deposits:     deposits,
		Range:        rng,
		Zone:         c.zone,
		Labels:       map[string]string{actorID: c.names.Resolve(ctx, actorID)},
	}, actorID)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "no transactions for actor '"+actorID+"' in range", nil)
	}
	view := &model.ClerkView{
		Range:    rng,
		Zone:     c.zoneName(),
		Ledger:   l,
		Sources:  sources,
		Degraded: sources.Deposits == model.SourceUnavailable || sources.Transactions == model.SourceUnavailable,
	}
	if view.Degraded {
		c.notifyDegraded(rng, sources)
	}
	return view, nil
}

// BranchLedger reconciles a single branch over rng.
func (c *Cashbook) BranchLedger(ctx context.Context, locationKey string, rng model.DateRange) (*model.BranchView, error) {
	ctx, span := tracer.Start(ctx, "Building branch ledger")
	defer span.End()
	span.SetAttributes(attribute.String("location.key", locationKey))

	txns, deposits, sources, err := c.fetchSources(ctx,
		func(ctx context.Context) ([]model.Transaction, error) {
			return c.datasource.FetchLocationTransactions(ctx, locationKey, rng)
		},
		func(ctx context.Context) ([]model.DepositRecord, error) {
			return c.datasource.FetchDepositRecords(ctx, rng)
		},
	)
	if err != nil {
		return nil, err
	}
	return c.branchView(locationKey, rng, txns, deposits, sources)
}

func (c *Cashbook) branchView(locationKey string, rng model.DateRange, txns []model.Transaction, deposits []model.DepositRecord, sources model.Sources) (*model.BranchView, error) {
	l, ok := ledger.BranchLedgerFor(ledger.Input{
		Transactions: txns,
		Deposits:     deposits,
		Range:        rng,
		Zone:         c.zone,
	}, locationKey)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "no activity for location '"+locationKey+"' in range", nil)
	}
	view := &model.BranchView{
		Range:    rng,
		Zone:     c.zoneName(),
		Ledger:   l,
		Sources:  sources,
		Degraded: sources.Deposits == model.SourceUnavailable || sources.Transactions == model.SourceUnavailable,
	}
	if view.Degraded {
		c.notifyDegraded(rng, sources)
	}
	return view, nil
}
