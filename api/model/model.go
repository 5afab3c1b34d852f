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
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/blnkfinance/bankcore/model"
)

type CreateAccount struct {
	Number         string  `json:"number"`
	OpeningBalance float64 `json:"opening_balance"`
}

type RecordTransaction struct {
	AccountID      string  `json:"account_id"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	RelatedAccount string  `json:"related_account"`
	Priority       int     `json:"priority"`
}

type Transfer struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type UpdatePriority struct {
	Priority int `json:"priority"`
}

type SchedulingAlgorithm struct {
	Algorithm string `json:"algorithm"`
}

type StartProcessing struct {
	Workers int `json:"workers"`
}

type SafetyCheck struct {
	Available []int   `json:"available"`
	MaxDemand [][]int `json:"max_demand"`
	Allocated [][]int `json:"allocated"`
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Number, validation.Required, validation.By(notBlank)),
		validation.Field(&a.OpeningBalance, validation.Min(0.0)),
	)
}

func (a *CreateAccount) Balance() decimal.Decimal {
	return decimal.NewFromFloat(a.OpeningBalance)
}

func (t *RecordTransaction) ValidateRecordTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.AccountID, validation.Required),
		validation.Field(&t.Type, validation.Required, validation.By(transactionType)),
		validation.Field(&t.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&t.RelatedAccount, validation.When(t.isTransfer(), validation.Required)),
		validation.Field(&t.Priority, validation.When(t.Priority != 0, validation.Min(1), validation.Max(10))),
	)
}

// TransactionType returns the parsed type; it is only meaningful after
// validation succeeded.
func (t *RecordTransaction) TransactionType() model.TransactionType {
	typ, _ := model.ParseTransactionType(t.Type)
	return typ
}

func (t *RecordTransaction) isTransfer() bool {
	typ, ok := model.ParseTransactionType(t.Type)
	return ok && typ.IsTransfer()
}

func (t *RecordTransaction) Value() decimal.Decimal {
	return decimal.NewFromFloat(t.Amount)
}

func (t *Transfer) ValidateTransfer() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Source, validation.Required),
		validation.Field(&t.Destination, validation.Required),
		validation.Field(&t.Amount, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

func (t *Transfer) Value() decimal.Decimal {
	return decimal.NewFromFloat(t.Amount)
}

func (p *UpdatePriority) ValidateUpdatePriority() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Priority, validation.Required, validation.Min(1), validation.Max(10)),
	)
}

func (s *SchedulingAlgorithm) ValidateSchedulingAlgorithm() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Algorithm, validation.Required),
	)
}

func (s *StartProcessing) ValidateStartProcessing() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Workers, validation.Min(0)),
	)
}

// ValidateSafetyCheck only checks presence; dimension checks belong to the
// analyzer.
func (s *SafetyCheck) ValidateSafetyCheck() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Available, validation.Required),
		validation.Field(&s.MaxDemand, validation.NotNil),
		validation.Field(&s.Allocated, validation.NotNil),
	)
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func transactionType(value interface{}) error {
	s, _ := value.(string)
	if _, ok := model.ParseTransactionType(s); !ok {
		return errors.New("must be one of DEPOSIT, WITHDRAWAL, TRANSFER_IN, TRANSFER_OUT")
	}
	return nil
}
