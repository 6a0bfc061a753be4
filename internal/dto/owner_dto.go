package dto

import "github.com/shopspring/decimal"

type SalesResponse struct {
	Items []PurchaseResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type EarningsResponse struct {
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	Count    int64           `json:"count"`
}
