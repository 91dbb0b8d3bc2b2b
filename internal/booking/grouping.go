package booking

import (
	"strconv"
	"strings"

	"github.com/iliyamo/campus-booking/internal/model"
)

// GroupStatus is the derived status of a cart submission.
type GroupStatus string

const (
	GroupPending           GroupStatus = "PENDING"
	GroupApproved          GroupStatus = "APPROVED"
	GroupRejected          GroupStatus = "REJECTED"
	GroupPartiallyApproved GroupStatus = "PARTIALLY_APPROVED"
)

// GroupedReservation is the unit the approval queue works on.  It is
// derived on every read and never stored.
type GroupedReservation struct {
	CartSubmissionID string                  `json:"cartSubmissionId"`
	Items            []model.ReservationItem `json:"items"`
	OverallStatus    GroupStatus             `json:"overallStatus"`
}

// GroupKey returns the cart token of r, or single-<id> for items submitted
// without one.
func GroupKey(r model.Reservation) string {
	if r.CartSubmissionID != nil && *r.CartSubmissionID != "" {
		return *r.CartSubmissionID
	}
	return "single-" + strconv.FormatUint(r.ID, 10)
}

// Group buckets items by GroupKey, keeping groups in order of first
// appearance and items in input order.
func Group(items []model.ReservationItem) []GroupedReservation {
	index := make(map[string]int)
	var groups []GroupedReservation
	for _, it := range items {
		key := GroupKey(it.Reservation)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, GroupedReservation{CartSubmissionID: key})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	for i := range groups {
		groups[i].OverallStatus = OverallStatus(groups[i].Items)
	}
	return groups
}

// OverallStatus is the shared status when every item agrees and
// PARTIALLY_APPROVED otherwise.
func OverallStatus(items []model.ReservationItem) GroupStatus {
	if len(items) == 0 {
		return GroupPending
	}
	first := items[0].Status
	for _, it := range items[1:] {
		if it.Status != first {
			return GroupPartiallyApproved
		}
	}
	return GroupStatus(first)
}

// HasPending reports whether any item of g still awaits a decision.
func (g GroupedReservation) HasPending() bool {
	for _, it := range g.Items {
		if it.Status == model.ReservationPending {
			return true
		}
	}
	return false
}

// StatusFilter selects groups in the approval queue.
type StatusFilter string

const (
	FilterAll               StatusFilter = "all"
	FilterPending           StatusFilter = "pending"
	FilterApproved          StatusFilter = "approved"
	FilterRejected          StatusFilter = "rejected"
	FilterPartiallyApproved StatusFilter = "partially_approved"
)

// ParseStatusFilter accepts the filter names case-insensitively.  An
// empty value means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	f := StatusFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterApproved, FilterRejected, FilterPartiallyApproved:
		return f, nil
	}
	return "", Invalid("status", "unknown status filter "+strconv.Quote(s))
}

// Match reports whether g belongs to the filtered view.  "pending" keeps
// any group with outstanding work; every other filter compares the
// overall status exactly.
func (f StatusFilter) Match(g GroupedReservation) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterPending:
		return g.HasPending()
	}
	return strings.EqualFold(string(g.OverallStatus), string(f))
}

// Filter returns the groups matching f, preserving order.
func Filter(groups []GroupedReservation, f StatusFilter) []GroupedReservation {
	out := make([]GroupedReservation, 0, len(groups))
	for _, g := range groups {
		if f.Match(g) {
			out = append(out, g)
		}
	}
	return out
}

const (
	// DefaultPageSize applies when a page is requested without a size.
	DefaultPageSize = 10
	// MaxPageSize caps the groups returned in one page.
	MaxPageSize = 100
)

// Pagination describes a page of groups.
type Pagination struct {
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
}

// Page is the paginated approval queue response.
type Page struct {
	Data       []GroupedReservation `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// Paginate slices groups into 1-based pages of at most MaxPageSize.  A
// page past the end yields an empty Data slice with accurate totals.
func Paginate(groups []GroupedReservation, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	total := len(groups)
	count := (total + pageSize - 1) / pageSize
	data := []GroupedReservation{}
	// Compared before multiplying so huge page numbers cannot overflow.
	if page-1 < count {
		from := (page - 1) * pageSize
		to := from + pageSize
		if to > total {
			to = total
		}
		data = groups[from:to]
	}
	return Page{
		Data: data,
		Pagination: Pagination{
			Total:     total,
			Page:      page,
			PageSize:  pageSize,
			PageCount: count,
		},
	}
}
