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

	"github.com/blnkfinance/bankcore/api/model"
)

func (a Api) GetSchedulingAlgorithm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"algorithm": a.core.SchedulingAlgorithm()})
}

func (a Api) SetSchedulingAlgorithm(c *gin.Context) {
	var req model.SchedulingAlgorithm
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateSchedulingAlgorithm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if !a.core.SetSchedulingAlgorithm(req.Algorithm) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scheduling algorithm " + req.Algorithm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"algorithm": a.core.SchedulingAlgorithm()})
}

func (a Api) StartProcessing(c *gin.Context) {
	var req model.StartProcessing
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := req.ValidateStartProcessing(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	a.core.StartProcessing(req.Workers)
	c.JSON(http.StatusOK, gin.H{"running": a.core.IsProcessing()})
}

func (a Api) StopProcessing(c *gin.Context) {
	a.core.StopProcessing()
	c.JSON(http.StatusOK, gin.H{"running": a.core.IsProcessing()})
}

func (a Api) ProcessingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":   a.core.IsProcessing(),
		"algorithm": a.core.SchedulingAlgorithm(),
	})
}

func (a Api) SafetyCheck(c *gin.Context) {
	var req model.SafetyCheck
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateSafetyCheck(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	safe, sequence, err := a.core.SafetyCheck(req.Available, req.MaxDemand, req.Allocated)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"safe": safe, "sequence": sequence})
}

func (a Api) GetInconsistencies(c *gin.Context) {
	c.JSON(http.StatusOK, a.core.Inconsistencies())
}
