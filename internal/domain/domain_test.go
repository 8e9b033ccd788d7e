package domain

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"already@example.com", "already@example.com"},
	}

	for _, tc := range tests {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@x.com", true},
		{"local.part+tag@sub.domain.io", true},
		{"no-at-sign", false},
		{"missing@tld", false},
		{"spaces in@x.com", false},
		{"@x.com", false},
		{"a@", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := ValidateEmail(tc.email); got != tc.valid {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tc.email, got, tc.valid)
		}
	}
}

func TestListQuery_Normalize(t *testing.T) {
	q := ListQuery{Page: 0, Limit: 500, Sort: "bogus", Order: "sideways", Search: "Alice"}.Normalize()

	if q.Page != 1 {
		t.Errorf("expected page=1, got %d", q.Page)
	}
	if q.Search != "alice" {
		t.Errorf("expected lowercased search, got %q", q.Search)
	}
	if q.Limit != MaxPageLimit {
		t.Errorf("expected limit=%d, got %d", MaxPageLimit, q.Limit)
	}
	if q.Sort != SortCreated {
		t.Errorf("expected sort=created, got %s", q.Sort)
	}
	if q.Order != OrderDesc {
		t.Errorf("expected order=desc, got %s", q.Order)
	}

	if off := (ListQuery{Page: 3, Limit: 25}).Offset(); off != 50 {
		t.Errorf("expected offset=50, got %d", off)
	}
}

func TestPartitionEmails(t *testing.T) {
	emails := make([]string, 120)
	for i := range emails {
		emails[i] = string(rune('a'+i%26)) + "@x.com"
	}

	batches := PartitionEmails(emails, 50)

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, want := range []int{50, 50, 20} {
		if len(batches[i]) != want {
			t.Errorf("batch %d: expected size %d, got %d", i, want, len(batches[i]))
		}
	}

	// Every address exactly once, in the original order.
	idx := 0
	for _, b := range batches {
		for _, e := range b {
			if e != emails[idx] {
				t.Fatalf("position %d: expected %q, got %q", idx, emails[idx], e)
			}
			idx++
		}
	}
	if idx != len(emails) {
		t.Fatalf("expected %d addresses covered, got %d", len(emails), idx)
	}
}

func TestPartitionEmails_Empty(t *testing.T) {
	if batches := PartitionEmails(nil, 50); len(batches) != 0 {
		t.Fatalf("expected no batches for an empty snapshot, got %d", len(batches))
	}
}

func TestCampaign_Done(t *testing.T) {
	tests := []struct {
		name                string
		total, sent, failed int
		done                bool
	}{
		{"fresh", 10, 0, 0, false},
		{"partial", 10, 5, 2, false},
		{"exact", 10, 8, 2, true},
		{"zero total", 0, 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Campaign{Total: tc.total, Sent: tc.sent, Failed: tc.failed}
			if c.Done() != tc.done {
				t.Errorf("Done() = %v, want %v", c.Done(), tc.done)
			}
		})
	}
}
