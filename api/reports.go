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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	model2 "github.com/dispatchdesk/cashbook/api/model"
	"github.com/dispatchdesk/cashbook/model"
)

// ClerkReport is the clerk half of a reconciliation report.
type ClerkReport struct {
	Range                 model.DateRange       `json:"range"`
	Zone                  string                `json:"zone"`
	Clerks                []model.EntityLedger  `json:"clerks"`
	Totals                model.Totals          `json:"totals"`
	UnattributedCollected decimal.Decimal       `json:"unattributed_collected"`
	Unattributed          []string              `json:"unattributed_transactions,omitempty"`
	OrphanDeposits        []model.DepositRecord `json:"orphan_deposits,omitempty"`
	Sources               model.Sources         `json:"sources"`
	Degraded              bool                  `json:"degraded"`
}

// BranchReport is the branch half of a reconciliation report.
type BranchReport struct {
	Range    model.DateRange      `json:"range"`
	Zone     string               `json:"zone"`
	Branches []model.BranchLedger `json:"branches"`
	Totals   model.Totals         `json:"totals"`
	Sources  model.Sources        `json:"sources"`
	Degraded bool                 `json:"degraded"`
}

func (a Api) report(c *gin.Context) (*model.Report, bool) {
	rng, err := model2.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	report, err := a.cashbook.Report(c.Request.Context(), rng)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return report, true
}

// GetReport returns the full report for the ?from=&to= range. A degraded
// report is still a 200, callers check the degraded flag.
func (a Api) GetReport(c *gin.Context) {
	report, ok := a.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a Api) GetClerkReport(c *gin.Context) {
	report, ok := a.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ClerkReport{
		Range:                 report.Range,
		Zone:                  report.Zone,
		Clerks:                report.Clerks,
		Totals:                report.ClerkTotals,
		UnattributedCollected: report.UnattributedCollected,
		Unattributed:          report.Unattributed,
		OrphanDeposits:        report.OrphanDeposits,
		Sources:               report.Sources,
		Degraded:              report.Degraded,
	})
}

func (a Api) GetBranchReport(c *gin.Context) {
	report, ok := a.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, BranchReport{
		Range:    report.Range,
		Zone:     report.Zone,
		Branches: report.Branches,
		Totals:   report.BranchTotals,
		Sources:  report.Sources,
		Degraded: report.Degraded,
	})
}

// GetClerkLedger returns one clerk's ledger with its per-transaction rows.
func (a Api) GetClerkLedger(c *gin.Context) {
	actorID := c.Param("actor_id")
	rng, err := model2.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := a.cashbook.ClerkLedger(c.Request.Context(), actorID, rng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetBranchLedger returns one branch's day buckets with the running balance.
func (a Api) GetBranchLedger(c *gin.Context) {
	location := c.Param("location")
	rng, err := model2.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := a.cashbook.BranchLedger(c.Request.Context(), location, rng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
