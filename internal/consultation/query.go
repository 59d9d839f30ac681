package consultation

import (
	"net/url"
	"sort"
	"strings"
)

type SortField string

const (
	SortCreated   SortField = "created"
	SortStatus    SortField = "status"
	SortStartDate SortField = "start_date"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListQuery is the caller-facing listing query: free-text name search, a
// status allow-list and sort parameters. View-specific defaults (browse vs
// upcoming) are applied by the service, not here.
type ListQuery struct {
	Search   string
	Statuses []Status
	Sort     SortField
	Order    SortOrder
	Limit    int
	Offset   int
}

// ParseListQuery reads q, status, sort and order. Unknown sort/order values
// are dropped so the defaults apply downstream.
func ParseListQuery(values url.Values) ListQuery {
	q := ListQuery{
		Search: strings.TrimSpace(values.Get("q")),
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				q.Statuses = append(q.Statuses, Status(s))
			}
		}
	}

	switch SortField(strings.TrimSpace(values.Get("sort"))) {
	case SortCreated:
		q.Sort = SortCreated
	case SortStatus:
		q.Sort = SortStatus
	case SortStartDate:
		q.Sort = SortStartDate
	}

	switch SortOrder(strings.TrimSpace(values.Get("order"))) {
	case OrderAsc:
		q.Order = OrderAsc
	case OrderDesc:
		q.Order = OrderDesc
	}

	return q
}

// Tokens splits the free-text search on whitespace.
func (q ListQuery) Tokens() []string {
	return strings.Fields(q.Search)
}

// Matches reports whether the record satisfies the query: every token must
// appear, case-insensitively, in at least one of the six name fields of the
// doctor or patient. Status filtering is part of the match too.
func (q ListQuery) Matches(d ConsultationDetail) bool {
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if d.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, tok := range q.Tokens() {
		if !matchToken(tok, d) {
			return false
		}
	}
	return true
}

func matchToken(tok string, d ConsultationDetail) bool {
	tok = strings.ToLower(tok)

	var fields []string
	if d.Doctor != nil {
		fields = append(fields, d.Doctor.FirstName, d.Doctor.MiddleName, d.Doctor.LastName)
	}
	if d.Patient != nil {
		fields = append(fields, d.Patient.FirstName, d.Patient.MiddleName, d.Patient.LastName)
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), tok) {
			return true
		}
	}
	return false
}

// SortDetails orders records in place. An empty sort field means start_date
// ascending regardless of order; the status sort breaks ties by start_date
// in the same direction.
func SortDetails(list []ConsultationDetail, field SortField, order SortOrder) {
	desc := order == OrderDesc

	less := func(a, b ConsultationDetail) bool {
		switch field {
		case SortCreated:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
			return a.StartDate.Before(b.StartDate)
		case SortStartDate:
			return a.StartDate.Before(b.StartDate)
		default:
			return a.StartDate.Before(b.StartDate)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if field == "" {
			// Unspecified sort ignores the order parameter.
			return less(list[i], list[j])
		}
		if desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}
