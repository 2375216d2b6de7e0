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
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dispatchdesk/cashbook"
	"github.com/dispatchdesk/cashbook/config"
	"github.com/dispatchdesk/cashbook/database/mocks"
	"github.com/dispatchdesk/cashbook/internal/apierror"
	"github.com/dispatchdesk/cashbook/internal/metrics"
	"github.com/dispatchdesk/cashbook/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response == nil {
		return resp, nil
	}
	err := json.NewDecoder(resp.Body).Decode(s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func setupRouter(t *testing.T, conf *config.Configuration) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if conf == nil {
		conf = &config.Configuration{}
	}
	conf.Redis = config.RedisConfig{Dns: mr.Addr()}
	config.MockConfig(conf)

	ds := new(mocks.MockDataSource)
	cb := cashbook.New(ds, client, config.ReconciliationConfig{Timezone: "UTC"}, metrics.New())
	api := NewAPI(cb)
	require.NotNil(t, api)
	return api.Router(), ds
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clerkTxns() []model.Transaction {
	return []model.Transaction{
		{ID: "t1", Amount: dec("1000"), PaymentKind: model.PaymentPaid, ActorID: "a1", LocationKey: "LAG-01", OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "t2", Amount: dec("1500"), PaymentKind: model.PaymentPaid, ActorID: "a1", LocationKey: "LAG-01", OccurredAt: time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)},
	}
}

func TestRootRoute(t *testing.T) {
	router, _ := setupRouter(t, nil)
	var body string
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/", Response: &body})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "server running...", body)
}

func TestGetReport(t *testing.T) {
	router, ds := setupRouter(t, nil)
	rng := model.DateRange{From: "2024-03-01", To: "2024-03-31"}
	ds.On("FetchTransactions", mock.Anything, rng).Return(clerkTxns(), nil)
	ds.On("FetchDepositRecords", mock.Anything, rng).Return([]model.DepositRecord{{
		RecordID:        "dep_1",
		DepositKey:      model.TransactionKey("t2"),
		DepositedAmount: dec("2000"),
		ExpenseAmount:   dec("300"),
		Version:         1,
	}}, nil)
	ds.On("GetActorName", mock.Anything, "a1").Return("Adaeze", nil)

	var report model.Report
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports?from=2024-03-01&to=2024-03-31", Response: &report})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, report.Clerks, 1)
	assert.Equal(t, "Adaeze", report.Clerks[0].Label)
	assert.True(t, dec("200").Equal(report.Clerks[0].CurrentBalance))
	require.Len(t, report.Branches, 1)
	assert.Equal(t, "LAG-01", report.Branches[0].EntityID)
	assert.False(t, report.Degraded)
}

func TestGetReport_InvalidRange(t *testing.T) {
	router, ds := setupRouter(t, nil)

	var apiErr apierror.APIError
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports?from=2024-03-31&to=2024-03-01", Response: &apiErr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
	ds.AssertNotCalled(t, "FetchTransactions", mock.Anything, mock.Anything)
}

func TestGetReport_SourcesUnavailable(t *testing.T) {
	router, ds := setupRouter(t, nil)
	down := apierror.NewAPIError(apierror.ErrSourceUnavailable, "db down", nil)
	ds.On("FetchTransactions", mock.Anything, model.DateRange{}).Return(nil, down)
	ds.On("FetchDepositRecords", mock.Anything, model.DateRange{}).Return(nil, down)

	var apiErr apierror.APIError
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports", Response: &apiErr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, apierror.ErrSourceUnavailable, apiErr.Code)
}

func TestGetClerkReport_Degraded(t *testing.T) {
	router, ds := setupRouter(t, nil)
	ds.On("FetchTransactions", mock.Anything, model.DateRange{}).Return(clerkTxns(), nil)
	ds.On("FetchDepositRecords", mock.Anything, model.DateRange{}).Return(nil, apierror.NewAPIError(apierror.ErrSourceUnavailable, "deposits down", nil))
	ds.On("GetActorName", mock.Anything, "a1").Return("Adaeze", nil)

	var report ClerkReport
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports/clerks", Response: &report})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, report.Degraded)
	assert.Equal(t, model.SourceUnavailable, report.Sources.Deposits)
	require.Len(t, report.Clerks, 1)
	assert.True(t, dec("2500").Equal(report.Clerks[0].CurrentBalance))
}

func TestGetBranchReport(t *testing.T) {
	router, ds := setupRouter(t, nil)
	ds.On("FetchTransactions", mock.Anything, model.DateRange{}).Return(clerkTxns(), nil)
	ds.On("FetchDepositRecords", mock.Anything, model.DateRange{}).Return([]model.DepositRecord{{
		RecordID:        "dep_b",
		DepositKey:      model.BranchKey("LAG-01", "2024-03-01"),
		DepositedAmount: dec("2000"),
		Version:         1,
	}}, nil)
	ds.On("GetActorName", mock.Anything, "a1").Return("Adaeze", nil)

	var report BranchReport
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports/branches", Response: &report})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, report.Branches, 1)
	assert.True(t, dec("500").Equal(report.Branches[0].CurrentBalance))
	assert.Equal(t, 1, report.Totals.Entities)
}

func TestGetClerkLedger_NotFound(t *testing.T) {
	router, ds := setupRouter(t, nil)
	ds.On("FetchActorTransactions", mock.Anything, "ghost", model.DateRange{}).Return([]model.Transaction{}, nil)
	ds.On("FetchDepositsByKeys", mock.Anything, mock.Anything).Return([]model.DepositRecord{}, nil)
	ds.On("GetActorName", mock.Anything, "ghost").Return("", apierror.NewAPIError(apierror.ErrNotFound, "no actor", nil)).Maybe()

	var apiErr apierror.APIError
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports/clerks/ghost", Response: &apiErr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetBranchLedger(t *testing.T) {
	router, ds := setupRouter(t, nil)
	rng := model.DateRange{From: "2024-03-01"}
	ds.On("FetchLocationTransactions", mock.Anything, "LAG-01", rng).Return(clerkTxns(), nil)
	ds.On("FetchDepositRecords", mock.Anything, rng).Return([]model.DepositRecord{}, nil)

	var view model.BranchView
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports/branches/LAG-01?from=2024-03-01", Response: &view})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "LAG-01", view.Ledger.EntityID)
	assert.True(t, dec("2500").Equal(view.Ledger.CurrentBalance))
}

func TestRecordTransactionDeposit(t *testing.T) {
	router, ds := setupRouter(t, nil)
	txns := clerkTxns()
	ds.On("GetTransaction", mock.Anything, "t2").Return(&txns[1], nil)
	ds.On("GetDepositRecord", mock.Anything, model.TransactionKey("t2")).Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "no record", nil))
	ds.On("UpsertDepositRecord", mock.Anything, mock.Anything, int64(0)).Return(&model.DepositRecord{
		RecordID:        "dep_1",
		DepositKey:      model.TransactionKey("t2"),
		DepositedAmount: dec("2000"),
		ExpenseAmount:   dec("300"),
		RecordedBy:      "ops@lagos",
		Version:         1,
	}, nil)
	ds.On("FetchActorTransactions", mock.Anything, "a1", model.DateRange{}).Return(txns, nil)
	ds.On("FetchDepositsByKeys", mock.Anything, mock.Anything).Return([]model.DepositRecord{}, nil)
	ds.On("GetActorName", mock.Anything, "a1").Return("Adaeze", nil)

	payload, _ := json.Marshal(map[string]interface{}{
		"deposited_amount": 2000,
		"expense_amount":   300,
		"recorded_by":      "ops@lagos",
	})
	var result model.DepositResult
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "PUT", Route: "/deposits/transactions/t2", Payload: bytes.NewReader(payload), Response: &result})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(1), result.Record.Version)
	require.NotNil(t, result.Clerk)
	assert.True(t, dec("200").Equal(result.Clerk.Ledger.CurrentBalance))
}

func TestRecordTransactionDeposit_Validation(t *testing.T) {
	router, ds := setupRouter(t, nil)

	tests := []struct {
		name    string
		payload string
		code    apierror.ErrorCode
		field   string
	}{
		{name: "negative deposit", payload: `{"deposited_amount": -5, "recorded_by": "ops"}`, code: apierror.ErrInvalidInput, field: "deposited_amount"},
		{name: "negative expense", payload: `{"deposited_amount": 5, "expense_amount": -1, "recorded_by": "ops"}`, code: apierror.ErrInvalidInput, field: "expense_amount"},
		{name: "over storage limit", payload: `{"deposited_amount": 1e19, "recorded_by": "ops"}`, code: apierror.ErrInvalidInput, field: "deposited_amount"},
		{name: "missing recorder", payload: `{"deposited_amount": 5}`, code: apierror.ErrInvalidInput, field: "recorded_by"},
		{name: "negative version", payload: `{"deposited_amount": 5, "recorded_by": "ops", "expected_version": -1}`, code: apierror.ErrInvalidInput, field: "expected_version"},
		{name: "not json", payload: `deposited=5`, code: apierror.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr struct {
				Code    apierror.ErrorCode `json:"code"`
				Message string             `json:"message"`
				Details struct {
					Field string `json:"field"`
				} `json:"details"`
			}
			resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "PUT", Route: "/deposits/transactions/t1", Payload: bytes.NewBufferString(tt.payload), Response: &apiErr})
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.field, apiErr.Details.Field)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
	ds.AssertNotCalled(t, "UpsertDepositRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordBranchDeposit_ValidationShape(t *testing.T) {
	router, ds := setupRouter(t, nil)

	var apiErr struct {
		Code    apierror.ErrorCode `json:"code"`
		Details struct {
			Field string  `json:"field"`
			Value float64 `json:"value"`
		} `json:"details"`
	}
	payload := bytes.NewBufferString(`{"deposited_amount": -3, "recorded_by": "ops"}`)
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "PUT", Route: "/deposits/branches/LAG-01/2024-03-01", Payload: payload, Response: &apiErr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
	assert.Equal(t, "deposited_amount", apiErr.Details.Field)
	assert.Equal(t, -3.0, apiErr.Details.Value)
	ds.AssertNotCalled(t, "UpsertDepositRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordTransactionDeposit_Conflict(t *testing.T) {
	router, ds := setupRouter(t, nil)
	txns := clerkTxns()
	ds.On("GetTransaction", mock.Anything, "t1").Return(&txns[0], nil)
	ds.On("UpsertDepositRecord", mock.Anything, mock.Anything, int64(3)).Return(nil, apierror.NewAPIError(apierror.ErrConflict, "stale version", nil))

	var apiErr apierror.APIError
	payload := bytes.NewBufferString(`{"deposited_amount": 10, "recorded_by": "ops", "expected_version": 3}`)
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "PUT", Route: "/deposits/transactions/t1", Payload: payload, Response: &apiErr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	ds.AssertNotCalled(t, "FetchActorTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordBranchDeposit(t *testing.T) {
	router, ds := setupRouter(t, nil)
	ds.On("GetDepositRecord", mock.Anything, model.BranchKey("LAG-01", "2024-03-01")).Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "no record", nil))
	ds.On("UpsertDepositRecord", mock.Anything, mock.Anything, int64(0)).Return(&model.DepositRecord{
		RecordID:        "dep_b",
		DepositKey:      model.BranchKey("LAG-01", "2024-03-01"),
		DepositedAmount: dec("2000"),
		RecordedBy:      "ops",
		Version:         1,
	}, nil)
	ds.On("FetchLocationTransactions", mock.Anything, "LAG-01", model.DateRange{}).Return(clerkTxns(), nil)
	ds.On("FetchDepositRecords", mock.Anything, model.DateRange{}).Return([]model.DepositRecord{}, nil)

	var result model.DepositResult
	payload := bytes.NewBufferString(`{"deposited_amount": 2000, "recorded_by": "ops"}`)
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "PUT", Route: "/deposits/branches/LAG-01/2024-03-01", Payload: payload, Response: &result})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, result.Branch)
	assert.True(t, dec("500").Equal(result.Branch.Ledger.CurrentBalance))
}

func TestRecordBranchDeposit_BadDay(t *testing.T) {
	router, _ := setupRouter(t, nil)

	var apiErr apierror.APIError
	payload := bytes.NewBufferString(`{"deposited_amount": 2000, "recorded_by": "ops"}`)
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "PUT", Route: "/deposits/branches/LAG-01/01-03-2024", Payload: payload, Response: &apiErr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
}

func TestMetricsRoute(t *testing.T) {
	router, _ := setupRouter(t, nil)
	req := httptest.NewRequest("GET", "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}

func TestRespondError_HidesUnknownErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = httptest.NewRequest("GET", "/reports", nil)

	respondError(c, errors.New("pq: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "pq:")
}

func TestRouterWithTelemetryAndSecretKey(t *testing.T) {
	router, _ := setupRouter(t, &config.Configuration{
		ProjectName:     "cashbook-test",
		EnableTelemetry: true,
		Server:          config.ServerConfig{Secure: true, SecretKey: "s3cret"},
	})

	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/reports"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}
