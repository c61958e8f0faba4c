// Package inventory reads the external MSSQL inventory catalog that products are mapped
// against before they can be quoted directly.
package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StockID is the catalog key. The catalog emits it as a number or a string.
type StockID string

func (id *StockID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StockID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("stock Id must be a number or string: %w", err)
	}
	*id = StockID(n.String())
	return nil
}

// Brand is the manufacturer attached to a stock item.
type Brand struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

// Stock is one inventory catalog item.
type Stock struct {
	ID          StockID `json:"Id"`
	Code        string  `json:"Code"`
	Description string  `json:"Description"`
	Brand       *Brand  `json:"brand,omitempty"`
}

// Filter returns the stocks whose code, description or brand code contains query,
// ignoring case. A blank query matches everything.
func Filter(stocks []Stock, query string) []Stock {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return stocks
	}

	matched := make([]Stock, 0)
	for _, s := range stocks {
		if strings.Contains(strings.ToLower(s.Code), q) ||
			strings.Contains(strings.ToLower(s.Description), q) ||
			(s.Brand != nil && strings.Contains(strings.ToLower(s.Brand.Code), q)) {
			matched = append(matched, s)
		}
	}
	return matched
}
