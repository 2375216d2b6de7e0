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
	"errors"
	"math"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/dispatchdesk/cashbook/model"
)

// RecordDeposit is the body of PUT /deposits/transactions/:id.
type RecordDeposit struct {
	DepositedAmount float64 `json:"deposited_amount"`
	ExpenseAmount   float64 `json:"expense_amount"`
	RecordedBy      string  `json:"recorded_by"`
	ExpectedVersion *int64  `json:"expected_version,omitempty"`
}

// RecordBranchDeposit is the body of PUT /deposits/branches/:location/:day.
type RecordBranchDeposit struct {
	DepositedAmount float64 `json:"deposited_amount"`
	RecordedBy      string  `json:"recorded_by"`
	ExpectedVersion *int64  `json:"expected_version,omitempty"`
}

func finiteAmount(value interface{}) error {
	v, ok := value.(float64)
	if !ok {
		return errors.New("must be a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("must be a finite number")
	}
	return nil
}

var maxAmount = validation.Max(model.AmountLimit).Exclusive().
	Error("must be less than 1000000000000000000")

// invalidInput turns ozzo field errors into the INVALID_INPUT error every
// other validation failure uses, naming the first failing field.
func invalidInput(err error, values map[string]interface{}) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apierror.NewValidationError("body", nil, err.Error())
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	field := fields[0]
	return apierror.NewValidationError(field, values[field], field+": "+errs[field].Error())
}

func versionValue(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func (d *RecordDeposit) ValidateRecordDeposit() error {
	err := validation.ValidateStruct(d,
		validation.Field(&d.DepositedAmount, validation.By(finiteAmount), validation.Min(0.0), maxAmount),
		validation.Field(&d.ExpenseAmount, validation.By(finiteAmount), validation.Min(0.0), maxAmount),
		validation.Field(&d.RecordedBy, validation.Required, validation.Length(1, 128)),
		validation.Field(&d.ExpectedVersion, validation.Min(int64(0))),
	)
	return invalidInput(err, map[string]interface{}{
		"deposited_amount": d.DepositedAmount,
		"expense_amount":   d.ExpenseAmount,
		"recorded_by":      d.RecordedBy,
		"expected_version": versionValue(d.ExpectedVersion),
	})
}

func (d *RecordBranchDeposit) ValidateRecordBranchDeposit() error {
	err := validation.ValidateStruct(d,
		validation.Field(&d.DepositedAmount, validation.By(finiteAmount), validation.Min(0.0), maxAmount),
		validation.Field(&d.RecordedBy, validation.Required, validation.Length(1, 128)),
		validation.Field(&d.ExpectedVersion, validation.Min(int64(0))),
	)
	return invalidInput(err, map[string]interface{}{
		"deposited_amount": d.DepositedAmount,
		"recorded_by":      d.RecordedBy,
		"expected_version": versionValue(d.ExpectedVersion),
	})
}

// ParseRange turns the from/to query parameters into a reporting range.
func ParseRange(from, to string) (model.DateRange, error) {
	rng, err := model.NewDateRange(from, to)
	if err != nil {
		return model.DateRange{}, apierror.NewValidationError("range", strings.TrimSpace(from)+".."+strings.TrimSpace(to), err.Error())
	}
	return rng, nil
}
