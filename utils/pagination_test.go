package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v int) *int { return &v }

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		offset     *int
		limit      *int
		wantOffset int
		wantLimit  int
	}{
		{"Defaults", nil, nil, 0, DefaultPageSize},
		{"Explicit", ptr(40), ptr(10), 40, 10},
		{"NegativeOffset", ptr(-5), nil, 0, DefaultPageSize},
		{"ZeroLimit", nil, ptr(0), 0, DefaultPageSize},
		{"ClampedLimit", nil, ptr(500), 0, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := GetPaginationParams(tt.offset, tt.limit)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
