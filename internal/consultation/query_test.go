package consultation

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detailWithNames(docLast, patLast string) ConsultationDetail {
	d := ConsultationDetail{
		Doctor: &Doctor{FirstName: "Anna", MiddleName: "Lee", LastName: docLast},
	}
	if patLast != "" {
		d.Patient = &Patient{FirstName: "Boris", LastName: patLast}
	}
	return d
}

func TestParseListQuery(t *testing.T) {
	q := ParseListQuery(url.Values{
		"q":      {"  smith doc  "},
		"status": {"created, pending ,,confirmed"},
		"sort":   {"status"},
		"order":  {"asc"},
	})

	assert.Equal(t, "smith doc", q.Search)
	assert.Equal(t, []string{"smith", "doc"}, q.Tokens())
	assert.Equal(t, []Status{StatusCreated, StatusPending, StatusConfirmed}, q.Statuses)
	assert.Equal(t, SortStatus, q.Sort)
	assert.Equal(t, OrderAsc, q.Order)
}

func TestParseListQueryDropsUnknownSortAndOrder(t *testing.T) {
	q := ParseListQuery(url.Values{
		"sort":  {"doctor"},
		"order": {"sideways"},
	})
	assert.Equal(t, SortField(""), q.Sort)
	assert.Equal(t, SortOrder(""), q.Order)
}

func TestMatchTokenSubstringCaseInsensitive(t *testing.T) {
	d := detailWithNames("Docherty", "Smith")

	assert.True(t, ListQuery{Search: "Doc"}.Matches(d))
	assert.True(t, ListQuery{Search: "doc"}.Matches(d))
	assert.True(t, ListQuery{Search: "cher"}.Matches(d))
	assert.False(t, ListQuery{Search: "Nielsen"}.Matches(d))
}

func TestMatchRequiresEveryToken(t *testing.T) {
	d := detailWithNames("Docherty", "Smith")

	// Tokens may match across different people.
	assert.True(t, ListQuery{Search: "doc smith"}.Matches(d))
	assert.False(t, ListQuery{Search: "doc nielsen"}.Matches(d))
}

func TestMatchWithoutPatient(t *testing.T) {
	d := detailWithNames("Docherty", "")

	assert.True(t, ListQuery{Search: "docherty"}.Matches(d))
	assert.False(t, ListQuery{Search: "smith"}.Matches(d))
}

func TestMatchStatusAllowList(t *testing.T) {
	d := detailWithNames("Docherty", "")
	d.Status = StatusPending

	assert.True(t, ListQuery{Statuses: []Status{StatusCreated, StatusPending}}.Matches(d))
	assert.False(t, ListQuery{Statuses: []Status{StatusCreated}}.Matches(d))
	assert.True(t, ListQuery{}.Matches(d))
}

func TestSortDetails(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	mk := func(status Status, startOffset, createdOffset time.Duration) ConsultationDetail {
		return ConsultationDetail{Consultation: Consultation{
			Status:    status,
			StartDate: base.Add(startOffset),
			CreatedAt: base.Add(createdOffset),
		}}
	}

	t.Run("default is start_date ascending regardless of order", func(t *testing.T) {
		list := []ConsultationDetail{
			mk(StatusCreated, 3*time.Hour, 0),
			mk(StatusCreated, time.Hour, 0),
			mk(StatusCreated, 2*time.Hour, 0),
		}
		SortDetails(list, "", OrderDesc)
		require.Len(t, list, 3)
		assert.True(t, list[0].StartDate.Before(list[1].StartDate))
		assert.True(t, list[1].StartDate.Before(list[2].StartDate))
	})

	t.Run("created descending", func(t *testing.T) {
		list := []ConsultationDetail{
			mk(StatusCreated, 0, time.Hour),
			mk(StatusCreated, 0, 3*time.Hour),
			mk(StatusCreated, 0, 2*time.Hour),
		}
		SortDetails(list, SortCreated, OrderDesc)
		assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
		assert.True(t, list[1].CreatedAt.After(list[2].CreatedAt))
	})

	t.Run("status sort breaks ties by start_date in the same direction", func(t *testing.T) {
		list := []ConsultationDetail{
			mk(StatusPending, 2*time.Hour, 0),
			mk(StatusCreated, 4*time.Hour, 0),
			mk(StatusPending, time.Hour, 0),
		}
		SortDetails(list, SortStatus, OrderAsc)
		assert.Equal(t, StatusCreated, list[0].Status)
		assert.Equal(t, base.Add(time.Hour), list[1].StartDate)
		assert.Equal(t, base.Add(2*time.Hour), list[2].StartDate)

		SortDetails(list, SortStatus, OrderDesc)
		assert.Equal(t, StatusPending, list[0].Status)
		assert.Equal(t, base.Add(2*time.Hour), list[0].StartDate)
		assert.Equal(t, StatusCreated, list[2].Status)
	})
}
