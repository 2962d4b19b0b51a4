package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses. Unrecognized
// errors become a 500 with the detail kept in the server log only.
func writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      "insufficient stock",
			"shortfalls": insufficient.Shortfalls,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTableOccupied),
		errors.Is(err, service.ErrOrderNotEditable),
		errors.Is(err, service.ErrOrderNotCompletable),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrOrderFullyPaid),
		errors.Is(err, service.ErrOrderNotPaid),
		errors.Is(err, service.ErrDayClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrInvalidDiscountType),
		errors.Is(err, service.ErrNegativeDiscount),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrPaymentNotPositive),
		errors.Is(err, service.ErrPaymentsExceedTotal),
		errors.Is(err, service.ErrInvalidStatusChange),
		errors.Is(err, service.ErrTableRequired),
		errors.Is(err, service.ErrShiftClosed),
		errors.Is(err, service.ErrInvalidMovement):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decimalFromString(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.String()
}
