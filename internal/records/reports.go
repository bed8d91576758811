package records

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/parkconnect-api/internal/booking"
)

// ErrUnknownReport is returned for an unsupported report kind.
var ErrUnknownReport = errors.New("records: unknown report kind")

// ReportKind selects the report window.
type ReportKind string

const (
	ReportDaily   ReportKind = "daily"
	ReportWeekly  ReportKind = "weekly"
	ReportMonthly ReportKind = "monthly"
)

// ReportKinds lists the supported kinds.
var ReportKinds = []ReportKind{ReportDaily, ReportWeekly, ReportMonthly}

// ParseReportKind validates a kind string.
func ParseReportKind(s string) (ReportKind, error) {
	for _, k := range ReportKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReport, s)
}

// Report is a window of records ready for export.
type Report struct {
	Kind     ReportKind        `json:"kind"`
	Filename string            `json:"filename"`
	Span     Span              `json:"-"`
	Records  []booking.Booking `json:"-"`
	Summary  Summary           `json:"summary"`
}

// Empty reports whether no record falls inside the window.
func (r Report) Empty() bool { return len(r.Records) == 0 }

// CSV renders the report file contents.
func (r Report) CSV() ([]byte, error) { return CSV(r.Records) }

// BuildReport selects the records of the window containing ref from the full,
// unfiltered record set. An empty report is not an error.
func (e *Engine) BuildReport(all []booking.Booking, kind ReportKind, ref time.Time) (Report, error) {
	ref = ref.In(e.Location)
	var (
		span Span
		name string
	)
	switch kind {
	case ReportDaily:
		span = e.WindowSpan(WindowToday, ref)
		name = "visitors-daily-report-" + span.From.Format(booking.DateLayout) + ".csv"
	case ReportWeekly:
		span = e.WindowSpan(WindowWeek, ref)
		name = fmt.Sprintf("visitors-weekly-report-%s-to-%s.csv",
			span.From.Format(booking.DateLayout), span.LastDay().Format(booking.DateLayout))
	case ReportMonthly:
		span = e.WindowSpan(WindowMonth, ref)
		name = "visitors-monthly-report-" + span.From.Format("2006-01") + ".csv"
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownReport, kind)
	}

	selected := make([]booking.Booking, 0)
	for _, b := range all {
		day, ok := b.VisitDate(e.Location)
		if ok && span.Contains(day) {
			selected = append(selected, b)
		}
	}
	SortRecords(selected, Sort{Key: KeyDateOfVisit, Dir: Asc})
	return Report{
		Kind:     kind,
		Filename: name,
		Span:     span,
		Records:  selected,
		Summary:  Summarize(selected),
	}, nil
}

// BuildCurrentReport builds the report for the window containing now.
func (e *Engine) BuildCurrentReport(all []booking.Booking, kind ReportKind) (Report, error) {
	return e.BuildReport(all, kind, e.now())
}
