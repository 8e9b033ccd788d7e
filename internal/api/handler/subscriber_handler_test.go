package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/optkit/optkit/internal/domain"
)

func TestParseListQuery(t *testing.T) {
	active := domain.StatusActive

	tests := []struct {
		name  string
		query string
		want  domain.ListQuery
	}{
		{
			name:  "defaults",
			query: "",
			want:  domain.ListQuery{},
		},
		{
			name:  "full set",
			query: "page=3&limit=25&status=active&search=Team&sort=email&order=asc",
			want: domain.ListQuery{
				Page: 3, Limit: 25, Status: &active,
				Search: "Team", Sort: domain.SortEmail, Order: domain.OrderAsc,
			},
		},
		{
			name:  "non-numeric page and limit ignored",
			query: "page=abc&limit=-4",
			want:  domain.ListQuery{},
		},
		{
			name:  "unknown status dropped",
			query: "status=pending",
			want:  domain.ListQuery{},
		},
		{
			name:  "sort and order passed through for Normalize to vet",
			query: "sort=bogus&order=sideways",
			want:  domain.ListQuery{Sort: "bogus", Order: "sideways"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/subscribers?"+tc.query, nil)
			got := parseListQuery(r)

			if got.Page != tc.want.Page || got.Limit != tc.want.Limit {
				t.Errorf("page/limit = %d/%d, want %d/%d", got.Page, got.Limit, tc.want.Page, tc.want.Limit)
			}
			if got.Search != tc.want.Search {
				t.Errorf("search = %q, want %q", got.Search, tc.want.Search)
			}
			if got.Sort != tc.want.Sort || got.Order != tc.want.Order {
				t.Errorf("sort/order = %q/%q, want %q/%q", got.Sort, got.Order, tc.want.Sort, tc.want.Order)
			}
			switch {
			case tc.want.Status == nil && got.Status != nil:
				t.Errorf("status = %q, want nil", *got.Status)
			case tc.want.Status != nil && got.Status == nil:
				t.Errorf("status = nil, want %q", *tc.want.Status)
			case tc.want.Status != nil && *got.Status != *tc.want.Status:
				t.Errorf("status = %q, want %q", *got.Status, *tc.want.Status)
			}
		})
	}
}
