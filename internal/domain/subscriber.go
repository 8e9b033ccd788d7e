package domain

import (
	"regexp"
	"strings"
	"time"
)

// SubscriberStatus tracks whether an address currently receives campaigns.
type SubscriberStatus string

const (
	StatusActive       SubscriberStatus = "active"
	StatusUnsubscribed SubscriberStatus = "unsubscribed"
)

func (s SubscriberStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusUnsubscribed:
		return true
	}
	return false
}

// Subscriber is one entry in the mailing list, keyed by normalized email.
// Re-subscribing mutates the existing row; rows are never duplicated.
type Subscriber struct {
	Email     string           `json:"email"`
	Status    SubscriberStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// SortKey selects the column subscribers are ordered by in list queries.
type SortKey string

const (
	SortCreated SortKey = "created"
	SortUpdated SortKey = "updated"
	SortEmail   SortKey = "email"
)

// SortOrder is the direction of a list query.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListQuery holds the parameters of a paginated subscriber listing.
// Zero values fall back to page 1, limit MaxPageLimit, sort created desc.
type ListQuery struct {
	Page   int
	Limit  int
	Status *SubscriberStatus
	Search string
	Sort   SortKey
	Order  SortOrder
}

// MaxPageLimit caps the page size of a single list call.
const MaxPageLimit = 100

// Normalize clamps the query into its valid range and lowercases the search
// term. Stored addresses are already lowercase, so matching stays
// case-insensitive regardless of how the caller typed the search.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	q.Search = strings.ToLower(q.Search)
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Sort != SortCreated && q.Sort != SortUpdated && q.Sort != SortEmail {
		q.Sort = SortCreated
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		q.Order = OrderDesc
	}
	return q
}

// Offset returns the row offset implied by page and limit.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// SubscriberPage is the result of a list query. Active and Unsubscribed are
// scoped by the search filter but not by the status filter, so the admin
// surface can show both counts regardless of the selected tab.
type SubscriberPage struct {
	Subscribers  []*Subscriber `json:"subscribers"`
	Total        int           `json:"total"`
	Active       int           `json:"active"`
	Unsubscribed int           `json:"unsubscribed"`
	HasMore      bool          `json:"hasMore"`
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// All storage and comparison happens on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether the (already normalized) address matches the
// local@domain.tld shape. It is the default for the pluggable validator.
func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}
