package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type HTTPHandler struct {
	Client     *Client
	MaxResults int
}

func NewHTTPHandler(client *Client, maxResults int) *HTTPHandler {
	return &HTTPHandler{Client: client, MaxResults: maxResults}
}

// HandleGetStocks handles GET /api/mssql/inventory/stocks?search={query}
func (h *HTTPHandler) HandleGetStocks(w http.ResponseWriter, r *http.Request) {
	if h.Client == nil {
		writeError(w, http.StatusServiceUnavailable, "inventory catalog is not configured")
		return
	}

	stocks, err := h.Client.SearchStocks(r.Context(), r.URL.Query().Get("search"), h.MaxResults)
	if err != nil {
		slog.ErrorContext(r.Context(), "inventory search failed", "error", err)
		writeError(w, http.StatusBadGateway, "inventory catalog unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stocks); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode stocks", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
