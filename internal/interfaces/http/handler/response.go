package handler

import "github.com/erp/stockledger/internal/interfaces/http/dto"

// APIResponse documents the success envelope with a typed data field
type APIResponse[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}
