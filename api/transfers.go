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

	"github.com/blnkfinance/bankcore"
	"github.com/blnkfinance/bankcore/api/model"
	"github.com/blnkfinance/bankcore/internal/apierror"
)

// TransferFunds executes a transfer synchronously. The response always
// carries success and message; failures add the stage.
func (a Api) TransferFunds(c *gin.Context) {
	var req model.Transfer
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateTransfer(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	transfer, err := a.core.Transfer(c.Request.Context(), req.Source, req.Destination, req.Value(), req.Description)
	if err != nil {
		body := gin.H{"success": false, "message": bankcore.TransferMessage(err)}
		if stage, ok := bankcore.StageOf(err); ok {
			body["stage"] = stage
		}
		if code := apierror.CodeOf(err); code != "" {
			body["code"] = code
		}
		c.JSON(apierror.MapErrorToHTTPStatus(err), body)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Transfer completed successfully",
		"transfer_id": transfer.TransferID,
	})
}
