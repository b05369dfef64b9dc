package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ridership3d/internal/render"
	"github.com/ridership3d/internal/ridership/cleaner"
	"github.com/ridership3d/internal/ridership/parser"
	"github.com/ridership3d/internal/ridership/view"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(body)
}

// errorStatus maps pipeline errors to a status code and response.
func errorStatus(err error) (int, ErrorResponse) {
	var (
		selErr    *view.SelectionError
		emptyView *view.EmptyViewError
		decodeErr *parser.DecodeError
		schemaErr *cleaner.SchemaError
		emptyErr  *cleaner.EmptyResultError
		tooLarge  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &selErr):
		return http.StatusBadRequest, ErrorResponse{
			Error:   selErr.Error(),
			Details: map[string]interface{}{"field": selErr.Field},
		}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "Upload is too large",
			Details: map[string]interface{}{"limitBytes": tooLarge.Limit},
		}
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Could not decode the CSV file with any supported encoding",
			Details: map[string]interface{}{"encodings": decodeErr.Encodings()},
		}
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: schemaErr.Error(),
			Details: map[string]interface{}{
				"required": schemaErr.Required,
				"actual":   schemaErr.Actual,
				"missing":  schemaErr.Missing,
			},
		}
	case errors.As(err, &emptyErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: emptyErr.Error(),
			Details: map[string]interface{}{
				"policy":    emptyErr.Policy,
				"inputRows": emptyErr.InputRows,
			},
		}
	case errors.As(err, &emptyView):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   emptyView.Error(),
			Details: map[string]interface{}{"lines": emptyView.Lines},
		}
	case errors.Is(err, render.ErrNoChartData):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to render ridership data",
			Details: map[string]interface{}{"internal": err.Error()},
		}
	}
}
