package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
)

// badRequest marks an error caused by a malformed request rather than by
// the record's values.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func newBadRequest(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// expenseRequest is the body of POST and PUT. totalPrice may be sent back by
// clients but is always derived on the server.
type expenseRequest struct {
	ID               *int64          `json:"id,omitempty"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	PercentageMarkup decimal.Decimal `json:"percentageMarkup"`
	TotalPrice       json.RawMessage `json:"totalPrice,omitempty"`
}

func (req expenseRequest) input() core.ExpenseInput {
	return core.ExpenseInput{
		Name:             req.Name,
		Price:            req.Price,
		PercentageMarkup: req.PercentageMarkup,
	}
}

// decodeExpense reads a single JSON object from the request body.
func decodeExpense(w http.ResponseWriter, r *http.Request) (expenseRequest, error) {
	var req expenseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return req, newBadRequest("Request body too large")
		case errors.Is(err, io.EOF):
			return req, newBadRequest("Request body is required")
		default:
			return req, newBadRequest("Invalid JSON body")
		}
	}
	if dec.More() {
		return req, newBadRequest("Request body must contain a single JSON object")
	}
	return req, nil
}

// parseID reads the {id} path parameter. Ids are positive.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, newBadRequest("Invalid expense id %q", raw)
	}
	return id, nil
}
