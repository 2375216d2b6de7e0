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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/dispatchdesk/cashbook"
	"github.com/dispatchdesk/cashbook/api/middleware"
	"github.com/dispatchdesk/cashbook/config"
	"github.com/dispatchdesk/cashbook/internal/apierror"
)

type Api struct {
	cashbook *cashbook.Cashbook
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/reports", a.GetReport)
	router.GET("/reports/clerks", a.GetClerkReport)
	router.GET("/reports/clerks/:actor_id", a.GetClerkLedger)
	router.GET("/reports/branches", a.GetBranchReport)
	router.GET("/reports/branches/:location", a.GetBranchLedger)

	router.PUT("/deposits/transactions/:id", a.RecordTransactionDeposit)
	router.PUT("/deposits/branches/:location/:day", a.RecordBranchDeposit)

	router.GET("/metrics", gin.WrapH(a.cashbook.Metrics().Handler()))
	return a.router
}

func NewAPI(cb *cashbook.Cashbook) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{cashbook: cb, router: r}
}

// respondError writes err with the status its code maps to. Errors that
// are not APIErrors are logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
		return
	}
	logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.JSON(http.StatusInternalServerError, apierror.APIError{
		Code:    apierror.ErrInternalServer,
		Message: "internal server error",
	})
}
