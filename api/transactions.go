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

func (a Api) RecordTransaction(c *gin.Context) {
	var req model.RecordTransaction
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := req.ValidateRecordTransaction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var (
		id  string
		err error
	)
	if req.Priority == 0 {
		id, err = a.core.RecordTransaction(ctx, req.AccountID, req.TransactionType(), req.Value(), req.Description, req.RelatedAccount)
	} else {
		id, err = a.core.RecordTransactionWithPriority(ctx, req.AccountID, req.TransactionType(), req.Value(), req.Description, req.RelatedAccount, req.Priority)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := a.core.GetTransaction(ctx, id)
	if err != nil {
		c.JSON(http.StatusCreated, gin.H{"transaction_id": id})
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (a Api) GetTransaction(c *gin.Context) {
	txn, err := a.core.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (a Api) UpdatePriority(c *gin.Context) {
	var req model.UpdatePriority
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateUpdatePriority(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.core.UpdatePriority(c.Request.Context(), c.Param("id"), req.Priority); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Priority updated successfully"})
}
