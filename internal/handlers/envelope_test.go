package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		totalCount int
		want       Pagination
	}{
		{
			name: "first of three pages",
			page: 1, perPage: 20, totalCount: 42,
			want: Pagination{CurrentPage: 1, PerPage: 20, TotalCount: 42, TotalPages: 3, HasNext: true, HasPrev: false},
		},
		{
			name: "middle page",
			page: 2, perPage: 20, totalCount: 42,
			want: Pagination{CurrentPage: 2, PerPage: 20, TotalCount: 42, TotalPages: 3, HasNext: true, HasPrev: true},
		},
		{
			name: "last page",
			page: 3, perPage: 20, totalCount: 42,
			want: Pagination{CurrentPage: 3, PerPage: 20, TotalCount: 42, TotalPages: 3, HasNext: false, HasPrev: true},
		},
		{
			name: "exact multiple",
			page: 2, perPage: 20, totalCount: 40,
			want: Pagination{CurrentPage: 2, PerPage: 20, TotalCount: 40, TotalPages: 2, HasNext: false, HasPrev: true},
		},
		{
			name: "empty result",
			page: 1, perPage: 20, totalCount: 0,
			want: Pagination{CurrentPage: 1, PerPage: 20, TotalCount: 0, TotalPages: 0, HasNext: false, HasPrev: false},
		},
		{
			name: "single short page",
			page: 1, perPage: 20, totalCount: 5,
			want: Pagination{CurrentPage: 1, PerPage: 20, TotalCount: 5, TotalPages: 1, HasNext: false, HasPrev: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPagination(tt.page, tt.perPage, tt.totalCount)
			assert.Equal(t, tt.want, *got)
		})
	}
}
