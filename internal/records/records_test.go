package records

import (
	"encoding/csv"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

var npt = time.FixedZone("NPT", 5*3600+45*60)

// Wednesday 15 April 2026; the week runs Monday 13th to Sunday 19th.
func testEngine() *Engine {
	e := NewEngine(npt)
	e.Now = func() time.Time { return time.Date(2026, 4, 15, 10, 0, 0, 0, npt) }
	return e
}

func visitors(cs ...pricing.Category) []booking.Visitor {
	out := make([]booking.Visitor, len(cs))
	for i, c := range cs {
		out[i] = booking.Visitor{Name: "v", Country: c}
	}
	return out
}

func fixtures() []booking.Booking {
	return []booking.Booking{
		{ID: "CNP-0001-AAAAAAAA", FullName: "Sita Sharma", Email: "sita@example.com", Phone: "9812345678",
			DateOfVisit: "2026-04-15", NumberOfVisitors: 2, Visitors: visitors(pricing.CategoryNepal, pricing.CategoryNepal),
			TotalPrice: 200, PaymentStatus: booking.PaymentPaid, CheckInStatus: booking.CheckedIn, EntryTime: "09:30 AM"},
		{ID: "CNP-0002-BBBBBBBB", FullName: "ravi kumar", Email: "ravi@example.in", Phone: "9800000001",
			DateOfVisit: "2026-04-13", NumberOfVisitors: 1, Visitors: visitors(pricing.CategorySAARC),
			TotalPrice: 200, PaymentStatus: booking.PaymentUnpaid, CheckInStatus: booking.NotCheckedIn},
		{ID: "CNP-0003-CCCCCCCC", FullName: "Anna Schmidt", Email: "anna@example.de", Phone: "9800000002",
			DateOfVisit: "2026-04-02", NumberOfVisitors: 3, Visitors: visitors(pricing.CategoryOther, pricing.CategoryNepal, pricing.CategoryOther),
			TotalPrice: 2100, PaymentStatus: booking.PaymentPaid},
		{ID: "CNP-0004-DDDDDDDD", FullName: "Bikash Thapa", Email: "bikash@example.com", Phone: "9800000003",
			DateOfVisit: "2026-03-30", NumberOfVisitors: 1, Visitors: visitors(pricing.CategoryNepal),
			TotalPrice: 100, PaymentStatus: booking.PaymentFailed},
		{ID: "CNP-0005-EEEEEEEE", FullName: "Legacy Record", Email: "old@example.com", Phone: "9800000004",
			DateOfVisit: "15/04/2026", NumberOfVisitors: 0, TotalPrice: 0},
	}
}

func ids(bs []booking.Booking) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID[:8]
	}
	return out
}

func TestFilterSearch(t *testing.T) {
	e := testEngine()
	all := fixtures()

	require.Equal(t, []string{"CNP-0002"}, ids(e.Filter(all, Criteria{Search: "RAVI"})))
	require.Equal(t, []string{"CNP-0003"}, ids(e.Filter(all, Criteria{Search: "cnp-0003"})))
	require.Equal(t, []string{"CNP-0004"}, ids(e.Filter(all, Criteria{Search: "00003"})))
	require.Equal(t, []string{"CNP-0001", "CNP-0004"}, ids(e.Filter(all, Criteria{Search: "@example.com"})[:2]))
	require.Empty(t, e.Filter(all, Criteria{Search: "nobody"}))
}

func TestFilterDateWindows(t *testing.T) {
	e := testEngine()
	all := fixtures()

	require.Len(t, e.Filter(all, Criteria{Window: WindowAll}), 5)
	require.Equal(t, []string{"CNP-0001"}, ids(e.Filter(all, Criteria{Window: WindowToday})))
	require.Equal(t, []string{"CNP-0001", "CNP-0002"}, ids(e.Filter(all, Criteria{Window: WindowWeek})))
	require.Equal(t, []string{"CNP-0001", "CNP-0002", "CNP-0003"}, ids(e.Filter(all, Criteria{Window: WindowMonth})))
}

func TestFilterWeekStartsMonday(t *testing.T) {
	e := NewEngine(npt)
	e.Now = func() time.Time { return time.Date(2026, 4, 19, 22, 0, 0, 0, npt) }
	got := e.Filter(fixtures(), Criteria{Window: WindowWeek})
	require.Equal(t, []string{"CNP-0001", "CNP-0002"}, ids(got))

	e.Now = func() time.Time { return time.Date(2026, 4, 20, 0, 5, 0, 0, npt) }
	require.Empty(t, e.Filter(fixtures(), Criteria{Window: WindowWeek}))
}

func TestFilterCategoricalAndCombined(t *testing.T) {
	e := testEngine()
	all := fixtures()

	require.Equal(t, []string{"CNP-0001", "CNP-0003", "CNP-0004"}, ids(e.Filter(all, Criteria{Country: pricing.CategoryNepal})))
	require.Equal(t, []string{"CNP-0001", "CNP-0003"}, ids(e.Filter(all, Criteria{Payment: booking.PaymentPaid})))
	require.Equal(t, []string{"CNP-0002"}, ids(e.Filter(all, Criteria{CheckIn: booking.NotCheckedIn})))
	require.Equal(t, []string{"CNP-0003"}, ids(e.Filter(all, Criteria{
		Country: pricing.CategoryOther, Payment: booking.PaymentPaid, Window: WindowMonth,
	})))
}

func TestSortByNameIsCaseInsensitive(t *testing.T) {
	got := fixtures()
	SortRecords(got, Sort{Key: KeyFullName, Dir: Asc})
	require.Equal(t, []string{"Anna Schmidt", "Bikash Thapa", "Legacy Record", "ravi kumar", "Sita Sharma"},
		[]string{got[0].FullName, got[1].FullName, got[2].FullName, got[3].FullName, got[4].FullName})
}

func TestSortNumericNotLexicographic(t *testing.T) {
	got := fixtures()
	SortRecords(got, Sort{Key: KeyTotalPrice, Dir: Desc})
	require.Equal(t, pricing.Money(2100), got[0].TotalPrice)
	require.Equal(t, pricing.Money(0), got[4].TotalPrice)
}

func TestSortDatesWithUnparsable(t *testing.T) {
	got := fixtures()
	SortRecords(got, Sort{Key: KeyDateOfVisit, Dir: Asc})
	require.Equal(t, []string{"CNP-0004", "CNP-0003", "CNP-0002", "CNP-0001", "CNP-0005"}, ids(got))

	SortRecords(got, DefaultSort)
	require.Equal(t, []string{"CNP-0005", "CNP-0001", "CNP-0002", "CNP-0003", "CNP-0004"}, ids(got))
}

func TestSortMissingValuesFirstAscending(t *testing.T) {
	got := fixtures()
	SortRecords(got, Sort{Key: KeyCheckInStatus, Dir: Asc})
	require.Equal(t, []string{"CNP-0003", "CNP-0004", "CNP-0005", "CNP-0001", "CNP-0002"}, ids(got))

	SortRecords(got, Sort{Key: KeyCheckInStatus, Dir: Desc})
	require.Equal(t, []string{"CNP-0002", "CNP-0001"}, ids(got[:2]))
	require.Equal(t, booking.CheckInStatus(""), got[4].CheckInStatus)
}

func TestSortCountryNoVisitorsLast(t *testing.T) {
	got := fixtures()
	SortRecords(got, Sort{Key: KeyCountry, Dir: Asc})
	require.Equal(t, "CNP-0005", got[4].ID[:8])
	require.Equal(t, pricing.CategoryNepal, got[0].Visitors[0].Country)
	require.Equal(t, pricing.CategoryOther, got[2].Visitors[0].Country)
	require.Equal(t, pricing.CategorySAARC, got[3].Visitors[0].Country)
}

func TestSortIsStable(t *testing.T) {
	got := fixtures()
	SortRecords(got, Sort{Key: KeyNumberOfVisitors, Dir: Asc})
	require.Equal(t, []string{"CNP-0005", "CNP-0002", "CNP-0004", "CNP-0001", "CNP-0003"}, ids(got))
}

func TestSortEqualDatesKeepIncomingOrder(t *testing.T) {
	got := []booking.Booking{
		{ID: "CNP-0009-ZZZZZZZZ", FullName: "Later Entry", DateOfVisit: "2024-08-15"},
		{ID: "CNP-0007-XXXXXXXX", FullName: "Other Day", DateOfVisit: "2024-08-14"},
		{ID: "CNP-0008-YYYYYYYY", FullName: "Earlier Entry", DateOfVisit: "2024-08-15"},
	}
	SortRecords(got, Sort{Key: KeyDateOfVisit, Dir: Asc})
	require.Equal(t, []string{"CNP-0007", "CNP-0009", "CNP-0008"}, ids(got))

	SortRecords(got, Sort{Key: KeyDateOfVisit, Dir: Desc})
	require.Equal(t, []string{"CNP-0009", "CNP-0008", "CNP-0007"}, ids(got))
}

func TestSortTwiceIsUnchanged(t *testing.T) {
	for _, key := range SortKeys {
		for _, dir := range []Direction{Asc, Desc} {
			t.Run(string(key)+"/"+string(dir), func(t *testing.T) {
				s := Sort{Key: key, Dir: dir}
				once := fixtures()
				slices.Reverse(once)
				SortRecords(once, s)
				first := ids(once)
				SortRecords(once, s)
				require.Equal(t, first, ids(once))
			})
		}
	}
}

func TestSortToggle(t *testing.T) {
	s := DefaultSort
	s = s.Toggle(KeyFullName)
	require.Equal(t, Sort{Key: KeyFullName, Dir: Asc}, s)
	s = s.Toggle(KeyFullName)
	require.Equal(t, Sort{Key: KeyFullName, Dir: Desc}, s)
	s = s.Toggle(KeyFullName)
	require.Equal(t, Sort{Key: KeyFullName, Dir: Asc}, s)
	s = s.Toggle(KeyTotalPrice)
	require.Equal(t, Sort{Key: KeyTotalPrice, Dir: Asc}, s)
}

func TestQueryDoesNotMutateInput(t *testing.T) {
	all := fixtures()
	before := ids(all)
	_ = testEngine().Query(all, Criteria{}, Sort{Key: KeyFullName, Dir: Desc})
	require.Equal(t, before, ids(all))
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixtures())
	require.Equal(t, Summary{Count: 5, TotalVisitors: 7, TotalCollected: 2300}, s)
	require.Equal(t, Summary{}, Summarize(nil))
}

func TestCSVExport(t *testing.T) {
	all := fixtures()[:2]
	all[1].FullName = `Ravi "RK", Kumar`
	body, err := CSV(all)
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.HasPrefix(text, "Booking ID,Booker Name,Visit Date,Group Size,Countries,"))
	require.Contains(t, text, `"Ravi ""RK"", Kumar"`)
	require.Contains(t, text, "Nepal; Nepal")
	require.Contains(t, text, "\n\nSummary\n")
	require.Contains(t, text, "Total Price Collected (Paid):,Rs. 200\n")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, ExportHeader, recs[0])
	require.Equal(t, []string{"CNP-0001-AAAAAAAA", "Sita Sharma", "2026-04-15", "2", "Nepal; Nepal", "Paid", "Checked-In", "09:30 AM", "N/A", "200"}, recs[1])
	require.Equal(t, `Ravi "RK", Kumar`, recs[2][1])
	require.Equal(t, []string{"Summary"}, recs[3])
	require.Equal(t, []string{"Total Bookings:", "2"}, recs[4])
	require.Equal(t, []string{"Total Visitors:", "3"}, recs[5])
}

func TestFormatRupees(t *testing.T) {
	require.Equal(t, "Rs. 0", FormatRupees(0))
	require.Equal(t, "Rs. 1,234", FormatRupees(1234))
	require.Equal(t, "Rs. 1,250,000", FormatRupees(1250000))
}

func TestBuildReports(t *testing.T) {
	e := testEngine()
	all := fixtures()
	ref := e.Now()

	daily, err := e.BuildReport(all, ReportDaily, ref)
	require.NoError(t, err)
	require.Equal(t, "visitors-daily-report-2026-04-15.csv", daily.Filename)
	require.Equal(t, []string{"CNP-0001"}, ids(daily.Records))

	weekly, err := e.BuildReport(all, ReportWeekly, ref)
	require.NoError(t, err)
	require.Equal(t, "visitors-weekly-report-2026-04-13-to-2026-04-19.csv", weekly.Filename)
	require.Equal(t, []string{"CNP-0002", "CNP-0001"}, ids(weekly.Records))

	monthly, err := e.BuildReport(all, ReportMonthly, ref)
	require.NoError(t, err)
	require.Equal(t, "visitors-monthly-report-2026-04.csv", monthly.Filename)
	require.Len(t, monthly.Records, 3)
	require.Equal(t, pricing.Money(2300), monthly.Summary.TotalCollected)

	empty, err := e.BuildReport(all, ReportDaily, time.Date(2026, 5, 1, 9, 0, 0, 0, npt))
	require.NoError(t, err)
	require.True(t, empty.Empty())

	_, err = e.BuildReport(all, "yearly", ref)
	require.ErrorIs(t, err, ErrUnknownReport)
}
