package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name          string
		page, perPage int
		wantPage      int
		wantPerPage   int
		wantOffset    int
	}{
		{"defaults", 0, 0, 1, 10, 0},
		{"negative", -3, -1, 1, 10, 0},
		{"second page", 2, 25, 2, 25, 25},
		{"capped", 3, 500, 3, 100, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.perPage, 10, 100)

			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}
