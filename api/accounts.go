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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blnkfinance/bankcore/api/model"
)

func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		badRequest(c, err)
		return
	}

	if err := newAccount.ValidateCreateAccount(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	account, err := a.core.CreateAccount(c.Request.Context(), newAccount.Number, newAccount.Balance())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (a Api) GetAccount(c *gin.Context) {
	account, err := a.core.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a Api) GetTransactionHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	history, err := a.core.GetTransactionHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (a Api) GetTransferHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	history, err := a.core.GetTransferHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// queryLimit reads ?limit=. A missing limit is 0, which the core treats as
// its default page size.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}
