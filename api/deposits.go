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

	"github.com/dispatchdesk/cashbook"
	model2 "github.com/dispatchdesk/cashbook/api/model"
	"github.com/dispatchdesk/cashbook/internal/apierror"
)

// RecordTransactionDeposit sets the deposited and expense amounts against
// one transaction. The ?from=&to= range scopes the recomputed clerk ledger
// returned alongside the stored record.
//
// Responses:
// - 200 OK: the record was stored.
// - 400 Bad Request: the body or range is invalid, or the transaction is not reconcilable.
// - 404 Not Found: the transaction does not exist.
// - 409 Conflict: the record changed since expected_version, or is being edited.
func (a Api) RecordTransactionDeposit(c *gin.Context) {
	var req model2.RecordDeposit
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrBadRequest, "request body must be valid JSON: "+err.Error(), nil))
		return
	}
	if err := req.ValidateRecordDeposit(); err != nil {
		respondError(c, err)
		return
	}
	rng, err := model2.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := a.cashbook.RecordTransactionDeposit(c.Request.Context(), cashbook.DepositInput{
		TransactionID:   c.Param("id"),
		DepositedAmount: req.DepositedAmount,
		ExpenseAmount:   req.ExpenseAmount,
		RecordedBy:      req.RecordedBy,
		ExpectedVersion: req.ExpectedVersion,
		Range:           rng,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordBranchDeposit sets what a branch banked for one day.
func (a Api) RecordBranchDeposit(c *gin.Context) {
	var req model2.RecordBranchDeposit
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrBadRequest, "request body must be valid JSON: "+err.Error(), nil))
		return
	}
	if err := req.ValidateRecordBranchDeposit(); err != nil {
		respondError(c, err)
		return
	}
	rng, err := model2.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := a.cashbook.RecordBranchDeposit(c.Request.Context(), cashbook.BranchDepositInput{
		LocationKey:     c.Param("location"),
		Day:             c.Param("day"),
		DepositedAmount: req.DepositedAmount,
		RecordedBy:      req.RecordedBy,
		ExpectedVersion: req.ExpectedVersion,
		Range:           rng,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
