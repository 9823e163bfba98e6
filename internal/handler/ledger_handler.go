package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
)

// LedgerCommander defines the write-side operations used by LedgerHandler.
type LedgerCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (string, error)
	Deposit(context.Context, cqrs.DepositCommand) (ledger.ResponseCode, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (ledger.ResponseCode, error)
	Transfer(context.Context, cqrs.TransferCommand) (ledger.ResponseCode, error)
}

// AccountQuerier defines the read-side operations used by LedgerHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
}

// LedgerHandler handles the account HTTP requests.
type LedgerHandler struct {
	commands LedgerCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	Name string `json:"name" validate:"required"`
	Pin  string `json:"pin" validate:"required"`
}

type CreateAccountResponse struct {
	AccountNumber string `json:"accountNumber"`
	Message       string `json:"message"`
}

// A missing amount decodes to zero and is rejected by the ledger as EMPTY_AMOUNT.
type DepositRequest struct {
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Pin           string          `json:"pin"`
}

type WithdrawRequest struct {
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Pin           string          `json:"pin"`
}

type TransferRequest struct {
	SourceAccountNumber string          `json:"sourceAccountNumber"`
	TargetAccountNumber string          `json:"targetAccountNumber"`
	Amount              decimal.Decimal `json:"amount"`
	Pin                 string          `json:"pin"`
}

type OperationResponse struct {
	Code    ledger.ResponseCode `json:"code"`
	Message string              `json:"message"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

func NewLedgerHandler(commands LedgerCommander, queries AccountQuerier) *LedgerHandler {
	return &LedgerHandler{commands: commands, queries: queries}
}

// RegisterRoutes mounts the ledger routes under /api/accounts.
func (h *LedgerHandler) RegisterRoutes(r gin.IRouter) {
	accounts := r.Group("/api/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.POST("/deposit", h.Deposit)
		accounts.POST("/withdraw", h.Withdraw)
		accounts.POST("/transfer", h.Transfer)
		accounts.GET("/:accountNumber", h.GetAccount)
	}
}

func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	accountNumber, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		Name: req.Name,
		Pin:  req.Pin,
	})
	if err != nil {
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, CreateAccountResponse{
		AccountNumber: accountNumber,
		Message:       fmt.Sprintf("Account '%s' has been created", accountNumber),
	})
}

func (h *LedgerHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	code, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
		Pin:           req.Pin,
	})
	respondWithCode(c, code, err)
}

func (h *LedgerHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	code, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
		Pin:           req.Pin,
	})
	respondWithCode(c, code, err)
}

func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	code, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferCommand{
		SourceAccountNumber: req.SourceAccountNumber,
		TargetAccountNumber: req.TargetAccountNumber,
		Amount:              req.Amount,
		Pin:                 req.Pin,
	})
	respondWithCode(c, code, err)
}

func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	views, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{})
	if err != nil {
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	if views == nil {
		views = []models.AccountView{}
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *LedgerHandler) GetAccount(c *gin.Context) {
	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountNumber: c.Param("accountNumber"),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
			return
		}
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, view)
}

func respondWithCode(c *gin.Context, code ledger.ResponseCode, err error) {
	if err != nil {
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Operation failed")
		return
	}
	c.JSON(statusFor(code), OperationResponse{Code: code, Message: code.Message()})
}

func statusFor(code ledger.ResponseCode) int {
	switch code {
	case ledger.Success:
		return http.StatusOK
	case ledger.NoAccount, ledger.NoSourceAccount, ledger.NoTargetAccount:
		return http.StatusNotFound
	case ledger.IncorrectPin:
		return http.StatusForbidden
	case ledger.EmptyAmount:
		return http.StatusBadRequest
	case ledger.NotEnoughBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
