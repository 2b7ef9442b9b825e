package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
)

func expiryRouter(ledger *mockExpiryLedger) *gin.Engine {
	h := NewExpiryHandler(ledger)
	return newTestRouter(func(r *gin.Engine) {
		r.GET("/expiry/alerts", h.Alerts)
		r.POST("/products/:product_id/batches/:id/dispose", h.Dispose)
		r.GET("/products/:product_id/disposals", h.ListDisposals)
	})
}

func TestExpiryHandler_Alerts(t *testing.T) {
	ledger := new(mockExpiryLedger)
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ledger.On("ClassifyExpiry", mock.Anything, mock.MatchedBy(func(at *time.Time) bool {
		return at != nil && at.Equal(asOf)
	})).Return(&appinv.ExpiryReport{
		AsOf:  asOf,
		Total: 1,
		Groups: []appinv.ExpiryGroup{{
			Tier:     "expired",
			Severity: "critical",
			Count:    1,
			Alerts:   []appinv.ExpiryAlertResponse{{BatchNumber: "LOT-9", DaysUntilExpiry: -2}},
		}},
	}, nil)
	ledger.On("ClassifyExpiry", mock.Anything, (*time.Time)(nil)).Return(&appinv.ExpiryReport{}, nil)

	router := expiryRouter(ledger)

	w := doRequest(router, http.MethodGet, "/expiry/alerts?as_of=2024-06-01", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp APIResponse[appinv.ExpiryReport]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Groups, 1)
	assert.Equal(t, "critical", resp.Data.Groups[0].Severity)
	assert.Equal(t, -2, resp.Data.Groups[0].Alerts[0].DaysUntilExpiry)

	w = doRequest(router, http.MethodGet, "/expiry/alerts", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/expiry/alerts?as_of=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ledger.AssertExpectations(t)
}

func TestExpiryHandler_Dispose(t *testing.T) {
	ledger := new(mockExpiryLedger)
	productID, batchID := uuid.New(), uuid.New()
	ledger.On("Dispose", mock.Anything, batchID, productID, mock.MatchedBy(func(req appinv.DisposeRequest) bool {
		return req.QuantityDisposed == 5 && req.DisposalMethod == "donation" && req.Reason == "short dated"
	})).Return(&appinv.DisposalResponse{
		BatchID:          batchID,
		ProductID:        productID,
		QuantityDisposed: 5,
		DisposalMethod:   "donation",
		CostLoss:         decimal.RequireFromString("12.50"),
	}, nil)

	w := doRequest(expiryRouter(ledger), http.MethodPost,
		"/products/"+productID.String()+"/batches/"+batchID.String()+"/dispose",
		`{"quantity_disposed":5,"disposal_method":"donation","reason":"short dated"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp APIResponse[appinv.DisposalResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.CostLoss.Equal(decimal.RequireFromString("12.5")))
	ledger.AssertExpectations(t)
}

func TestExpiryHandler_DisposeErrors(t *testing.T) {
	ledger := new(mockExpiryLedger)
	ledger.On("Dispose", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Disposed quantity exceeds remaining batch quantity")).Once()
	router := expiryRouter(ledger)
	path := "/products/" + uuid.NewString() + "/batches/" + uuid.NewString() + "/dispose"

	w := doRequest(router, http.MethodPost, path, `{"quantity_disposed":500}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(router, http.MethodPost, path, `{"disposal_method":"incinerate"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)

	w = doRequest(router, http.MethodPost, "/products/"+uuid.NewString()+"/batches/bad/dispose", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ledger.AssertNumberOfCalls(t, "Dispose", 1)
}

func TestExpiryHandler_ListDisposals(t *testing.T) {
	ledger := new(mockExpiryLedger)
	productID := uuid.New()
	ledger.On("ListDisposals", mock.Anything, productID, appinv.DisposalListFilter{Page: 1, PageSize: 5}).
		Return([]appinv.DisposalResponse{{QuantityDisposed: 3}}, int64(11), nil)

	w := doRequest(expiryRouter(ledger), http.MethodGet, "/products/"+productID.String()+"/disposals?page_size=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp APIResponse[[]appinv.DisposalResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	ledger.AssertExpectations(t)
}
