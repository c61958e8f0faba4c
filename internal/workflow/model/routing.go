package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Routing is the per-line-item decision taken on a Technical Recommendation approval.
// The zero value means no decision has been made yet.
type Routing string

const (
	RoutingUnrouted        Routing = ""
	RoutingRFQ             Routing = "rfq"
	RoutingDirectQuotation Routing = "direct_quotation"
)

// ParseRouting accepts "rfq" and "direct_quotation" in any case; an empty string is Unrouted.
func ParseRouting(s string) (Routing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return RoutingUnrouted, nil
	case "rfq":
		return RoutingRFQ, nil
	case "direct_quotation", "direct-quotation", "directquotation", "direct":
		return RoutingDirectQuotation, nil
	}
	return "", fmt.Errorf("unknown routing %q", s)
}

// UnmarshalJSON accepts any spelling ParseRouting accepts.
func (r *Routing) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("routing must be a string: %w", err)
	}
	routing, err := ParseRouting(raw)
	if err != nil {
		return err
	}
	*r = routing
	return nil
}
