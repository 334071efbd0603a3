package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// SuccessResponse is the generic mutation envelope.
type SuccessResponse struct {
	Success bool   `json:"success"`
	ID      *int64 `json:"id,omitempty"`
	Changes *int64 `json:"changes,omitempty"`
}

func successID(id int64) SuccessResponse { return SuccessResponse{Success: true, ID: &id} }

func successChanges(n int64) SuccessResponse { return SuccessResponse{Success: true, Changes: &n} }

// Pagination is the list envelope for paginated resources.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// storeError wraps a datastore failure with the schema-migration remedy hint
// the client surfaces to operators.
func storeError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, map[string]interface{}{
		"error": err.Error(),
		"hint":  "If this is a schema error, run `rizzbot migrate` first",
	})
}
