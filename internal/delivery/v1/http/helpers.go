package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ProductID int64  `json:"product_id,omitempty"` // товар, которого не хватило на складе
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse переводит ошибку сценария в HTTP-ответ.
// Для 5xx наружу уходит только общее сообщение, причина остаётся в логах.
func ToHTTPResponse(err error) *ErrorResponse {
	var stockErr *e.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		res := NewErrorResponse(http.StatusConflict, stockErr.Error())
		res.ProductID = stockErr.ProductID
		return res
	case errors.Is(err, e.ErrInsufficientStock):
		return NewErrorResponse(http.StatusConflict, e.ErrInsufficientStock.Error())
	case errors.Is(err, e.ErrInvalidArgument):
		return NewErrorResponse(http.StatusBadRequest, clientMessage(err, e.ErrInvalidArgument))
	case errors.Is(err, e.ErrUnauthorized):
		return NewErrorResponse(http.StatusUnauthorized, e.ErrUnauthorized.Error())
	case errors.Is(err, e.ErrForbidden):
		return NewErrorResponse(http.StatusForbidden, e.ErrForbidden.Error())
	case errors.Is(err, e.ErrNotFound):
		return NewErrorResponse(http.StatusNotFound, clientMessage(err, e.ErrNotFound))
	case errors.Is(err, e.ErrInvalidState):
		return NewErrorResponse(http.StatusConflict, clientMessage(err, e.ErrInvalidState))
	case errors.Is(err, e.ErrTransient):
		return NewErrorResponse(http.StatusServiceUnavailable, e.ErrTransient.Error())
	default:
		return NewErrorResponse(http.StatusInternalServerError, e.ErrInternalServerError.Error())
	}
}

// clientMessage отдаёт текст самой конкретной доменной ошибки без префиксов операций.
func clientMessage(err, kind error) string {
	for _, known := range []error{
		e.ErrQuantityMustBePositive, e.ErrQuantityTooLarge, e.ErrProductNameRequired, e.ErrInvalidPrice, e.ErrPricePrecision,
		e.ErrInvalidStock, e.ErrInvalidID, e.ErrInvalidBody,
		e.ErrProductNotFound, e.ErrCartNotFound, e.ErrOrderNotFound, e.ErrReceiptNotReady,
		e.ErrCartEmpty,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return kind.Error()
}

func WriteError(w http.ResponseWriter, err error) {
	res := ToHTTPResponse(err)
	WriteSuccess(w, res.Code, res)
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError пишет ошибку клиенту и логирует её: 5xx как ошибку, остальное как предупреждение.
func respondError(log logger.Logger, w http.ResponseWriter, r *http.Request, err error) {
	res := ToHTTPResponse(err)
	if res.Code >= http.StatusInternalServerError {
		log.Errorf(err, "%s %s: %d", r.Method, r.URL.Path, res.Code)
	} else {
		log.Warnf("%s %s: %d %s", r.Method, r.URL.Path, res.Code, err.Error())
	}
	WriteSuccess(w, res.Code, res)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return e.Wrap(err.Error(), e.ErrInvalidBody)
	}
	return nil
}

// parsePrice разбирает цену вида "599.99" или 600.
// Знак и точность проверяет сценарий каталога.
func parsePrice(n json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, e.Wrap(s, e.ErrInvalidPrice)
	}
	return d, nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, e.Wrap(raw, e.ErrInvalidID)
	}
	return id, nil
}
