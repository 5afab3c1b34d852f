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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/blnkfinance/bankcore"
	"github.com/blnkfinance/bankcore/api/middleware"
	"github.com/blnkfinance/bankcore/config"
	"github.com/blnkfinance/bankcore/internal/apierror"
)

type Api struct {
	core   *bankcore.Core
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts/:id", a.GetAccount)
	router.GET("/accounts/:id/transactions", a.GetTransactionHistory)
	router.GET("/accounts/:id/transfers", a.GetTransferHistory)

	router.POST("/transactions", a.RecordTransaction)
	router.GET("/transactions/:id", a.GetTransaction)
	router.PUT("/transactions/:id/priority", a.UpdatePriority)

	router.POST("/transfers", a.TransferFunds)

	router.GET("/scheduler/algorithm", a.GetSchedulingAlgorithm)
	router.PUT("/scheduler/algorithm", a.SetSchedulingAlgorithm)

	router.POST("/processing/start", a.StartProcessing)
	router.POST("/processing/stop", a.StopProcessing)
	router.GET("/processing", a.ProcessingStatus)

	router.POST("/safety-check", a.SafetyCheck)
	router.GET("/inconsistencies", a.GetInconsistencies)

	return a.router
}

func NewAPI(core *bankcore.Core) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	conf, err := config.Fetch()
	if err != nil {
		conf = config.DefaultConfig()
	}
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})
	return &Api{core: core, router: r}
}

// respondWithError writes err with the status its code maps to. Staged
// errors also report whether any money moved.
func respondWithError(c *gin.Context, err error) {
	body := gin.H{"error": bankcore.TransferMessage(err)}
	if code := apierror.CodeOf(err); code != "" {
		body["code"] = code
	}
	if stage, ok := bankcore.StageOf(err); ok {
		body["stage"] = stage
	}
	c.JSON(apierror.MapErrorToHTTPStatus(err), body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
