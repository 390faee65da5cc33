package attendance

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	// ReportCustom tags reports over explicit dates.
	ReportCustom ReportType = "custom"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportDaily, ReportWeekly, ReportMonthly:
		return true
	}
	return false
}

// unknownLabel buckets rows whose student or class no longer exists.
const unknownLabel = "Unknown"

var (
	errBoundsPair    = core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "start_date and end_date must be provided together"})
	errBoundsOrder   = core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot be before start date"})
	errPeriodMissing = core.NewValidationError(nil, core.FieldError{Field: "type", Error: "type must be one of daily, weekly or monthly"})
)

type ReportQuery struct {
	Type      ReportType `query:"type" validate:"omitempty,report_type"`
	StartDate string     `query:"start_date" validate:"omitempty,isodate"`
	EndDate   string     `query:"end_date" validate:"omitempty,isodate"`
	ClassID   string     `query:"class_id"`
	StudentID string     `query:"student_id"`
}

func (rq *ReportQuery) Validate() error {
	rq.Type = ReportType(core.CleanString(string(rq.Type), true /* lower */))
	rq.StartDate = core.CleanString(rq.StartDate)
	rq.EndDate = core.CleanString(rq.EndDate)
	rq.ClassID = core.CleanString(rq.ClassID)
	rq.StudentID = core.CleanString(rq.StudentID)
	return core.Validate.Struct(rq)
}

type Period struct {
	Type      ReportType `json:"type"`
	StartDate core.Date  `json:"start_date"`
	EndDate   core.Date  `json:"end_date"`
}

// ResolvePeriod picks the inclusive date range of a report.
// Explicit dates win over the type; otherwise the type is anchored to now's calendar day.
// Weeks run Sunday to Saturday.
func ResolvePeriod(typ ReportType, startDate, endDate string, now time.Time) (Period, error) {
	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return Period{}, errBoundsPair
		}
		start, err := core.ParseDateValue(startDate)
		if err != nil {
			return Period{}, core.NewValidationError(nil, core.FieldError{Field: "start_date", Error: "date must be formatted as YYYY-MM-DD"})
		}
		end, err := core.ParseDateValue(endDate)
		if err != nil {
			return Period{}, core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "date must be formatted as YYYY-MM-DD"})
		}
		if end.Before(start) {
			return Period{}, errBoundsOrder
		}
		if !typ.Valid() {
			typ = ReportCustom
		}
		return Period{Type: typ, StartDate: start, EndDate: end}, nil
	}

	today := core.NewDate(now)
	switch typ {
	case ReportDaily:
		return Period{Type: typ, StartDate: today, EndDate: today}, nil
	case ReportWeekly:
		start := today.AddDays(-int(today.Weekday()))
		return Period{Type: typ, StartDate: start, EndDate: start.AddDays(6)}, nil
	case ReportMonthly:
		start := core.DateOf(today.Year(), today.Month(), 1)
		end := core.Date{Time: start.AddDate(0, 1, -1)}
		return Period{Type: typ, StartDate: start, EndDate: end}, nil
	}
	return Period{}, errPeriodMissing
}

// ReportRecord is a Record joined with its student & class. Either may be nil once deleted.
type ReportRecord struct {
	Record
	Student *student.Student `json:"student"`
	Class   *class.Class     `json:"class"`
}

func (rr ReportRecord) studentLabel() string {
	if rr.Student == nil {
		return unknownLabel
	}
	return rr.Student.Name
}

func (rr ReportRecord) classLabel() string {
	if rr.Class == nil {
		return unknownLabel
	}
	return rr.Class.Name
}

type Summary struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// Rate is (present + late) / total as a percentage with one decimal; 0 without records.
func Rate(present, late, total int) float64 {
	if total <= 0 {
		return 0
	}
	return core.Round(float64(present+late)/float64(total)*100, 1)
}

type Group struct {
	Key     string `json:"key"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Late    int    `json:"late"`
	Total   int    `json:"total"`
}

func (g *Group) add(s Status) {
	switch s {
	case StatusPresent:
		g.Present++
	case StatusAbsent:
		g.Absent++
	case StatusLate:
		g.Late++
	}
	g.Total++
}

// grouping accumulates Groups, keeping their first insertion order.
type grouping struct {
	index  map[string]int
	groups []Group
}

func newGrouping() *grouping {
	return &grouping{index: make(map[string]int), groups: make([]Group, 0)}
}

func (gr *grouping) add(key string, s Status) {
	i, ok := gr.index[key]
	if !ok {
		i = len(gr.groups)
		gr.index[key] = i
		gr.groups = append(gr.groups, Group{Key: key})
	}
	gr.groups[i].add(s)
}

type Report struct {
	Period    Period         `json:"period"`
	Summary   Summary        `json:"summary"`
	Records   []ReportRecord `json:"records"`
	ByDate    []Group        `json:"by_date"`
	ByClass   []Group        `json:"by_class"`
	ByStudent []Group        `json:"by_student"`
}

// Aggregate computes the Report of records over period.
func Aggregate(period Period, records []ReportRecord) Report {
	byDate, byClass, byStudent := newGrouping(), newGrouping(), newGrouping()
	var sum Summary

	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		}
		sum.Total++

		byDate.add(rec.Date.String(), rec.Status)
		byClass.add(rec.classLabel(), rec.Status)
		byStudent.add(rec.studentLabel(), rec.Status)
	}
	sum.AttendanceRate = Rate(sum.Present, sum.Late, sum.Total)

	if records == nil {
		records = make([]ReportRecord, 0)
	}
	return Report{
		Period:    period,
		Summary:   sum,
		Records:   records,
		ByDate:    byDate.groups,
		ByClass:   byClass.groups,
		ByStudent: byStudent.groups,
	}
}
