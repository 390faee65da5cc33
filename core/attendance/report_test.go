package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

func TestRate(t *testing.T) {
	tests := []struct {
		name                 string
		present, late, total int
		want                 float64
	}{
		{name: "no records", want: 0},
		{name: "all present", present: 4, total: 4, want: 100},
		{name: "late counts", present: 1, late: 1, total: 4, want: 50},
		{name: "rounded", present: 2, total: 3, want: 66.7},
		{name: "one third", present: 1, total: 3, want: 33.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rate(tt.present, tt.late, tt.total); got != tt.want {
				t.Errorf("Rate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolvePeriod(t *testing.T) {
	wed := time.Date(2021, time.March, 3, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		typ        ReportType
		start, end string
		want       Period
		wantErr    error
	}{
		{name: "daily", typ: ReportDaily, want: Period{ReportDaily, core.DateOf(2021, time.March, 3), core.DateOf(2021, time.March, 3)}},
		{name: "weekly starts on sunday", typ: ReportWeekly, want: Period{ReportWeekly, core.DateOf(2021, time.February, 28), core.DateOf(2021, time.March, 6)}},
		{name: "monthly", typ: ReportMonthly, want: Period{ReportMonthly, core.DateOf(2021, time.March, 1), core.DateOf(2021, time.March, 31)}},
		{name: "custom", start: "2021-01-01", end: "2021-01-31", want: Period{ReportCustom, core.DateOf(2021, time.January, 1), core.DateOf(2021, time.January, 31)}},
		{name: "dates win over type", typ: ReportMonthly, start: "2021-01-01", end: "2021-01-02", want: Period{ReportMonthly, core.DateOf(2021, time.January, 1), core.DateOf(2021, time.January, 2)}},
		{name: "single day range", start: "2021-01-01", end: "2021-01-01", want: Period{ReportCustom, core.DateOf(2021, time.January, 1), core.DateOf(2021, time.January, 1)}},
		{name: "no period", wantErr: errPeriodMissing},
		{name: "start only", start: "2021-01-01", wantErr: errBoundsPair},
		{name: "end only", end: "2021-01-01", wantErr: errBoundsPair},
		{name: "reversed", start: "2021-01-02", end: "2021-01-01", wantErr: errBoundsOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePeriod(tt.typ, tt.start, tt.end, wed)
			if err != tt.wantErr {
				t.Fatalf("ResolvePeriod() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.StartDate.Equal(tt.want.StartDate) || !got.EndDate.Equal(tt.want.EndDate) || got.Type != tt.want.Type {
				t.Errorf("ResolvePeriod() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("invalid date", func(t *testing.T) {
		_, err := ResolvePeriod("", "2021-13-01", "2021-12-01", wed)
		assert.Error(t, err)
	})

	t.Run("monthly in february", func(t *testing.T) {
		p, err := ResolvePeriod(ReportMonthly, "", "", time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", p.EndDate.String())
	})
}

func TestAggregate(t *testing.T) {
	form1 := &class.Class{ID: "c1", Name: "Form 1"}
	amani := &student.Student{ID: "s1", Name: "Amani"}
	baraka := &student.Student{ID: "s2", Name: "Baraka"}
	mon, tue := core.DateOf(2021, time.March, 1), core.DateOf(2021, time.March, 2)

	rec := func(std *student.Student, date core.Date, s Status) ReportRecord {
		return ReportRecord{Record: Record{Date: date, Status: s}, Student: std, Class: form1}
	}
	period := Period{Type: ReportCustom, StartDate: mon, EndDate: tue}

	rep := Aggregate(period, []ReportRecord{
		rec(amani, mon, StatusPresent),
		rec(baraka, mon, StatusAbsent),
		rec(amani, tue, StatusLate),
		rec(nil, tue, StatusPresent),
	})

	assert.Equal(t, Summary{Total: 4, Present: 2, Absent: 1, Late: 1, AttendanceRate: 75}, rep.Summary)
	assert.Equal(t, []Group{
		{Key: "2021-03-01", Present: 1, Absent: 1, Total: 2},
		{Key: "2021-03-02", Present: 1, Late: 1, Total: 2},
	}, rep.ByDate)
	assert.Equal(t, []Group{{Key: "Form 1", Present: 2, Absent: 1, Late: 1, Total: 4}}, rep.ByClass)
	assert.Equal(t, []Group{
		{Key: "Amani", Present: 1, Late: 1, Total: 2},
		{Key: "Baraka", Absent: 1, Total: 1},
		{Key: unknownLabel, Present: 1, Total: 1},
	}, rep.ByStudent)
	assert.Len(t, rep.Records, 4)

	t.Run("no records", func(t *testing.T) {
		rep := Aggregate(period, nil)
		assert.Equal(t, Summary{}, rep.Summary)
		assert.NotNil(t, rep.Records)
		assert.Empty(t, rep.ByDate)
	})
}

func TestBulkInput_Validate(t *testing.T) {
	bi := BulkInput{Records: []Input{{StudentID: " s1 ", ClassID: "c1", Date: "2021-03-01", Status: " Present "}}}
	require.NoError(t, bi.Validate())
	assert.Equal(t, "s1", bi.Records[0].StudentID)
	assert.Equal(t, StatusPresent, bi.Records[0].Status)

	empty := BulkInput{}
	assert.Error(t, empty.Validate())

	bad := BulkInput{Records: []Input{{StudentID: "s1", ClassID: "c1", Date: "01/03/2021", Status: StatusPresent}}}
	assert.Error(t, bad.Validate())
}

func TestFilter_Match(t *testing.T) {
	r := Record{StudentID: "s1", ClassID: "c1", Date: core.DateOf(2021, time.March, 2)}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", want: true},
		{name: "class", filter: Filter{ClassID: "c1"}, want: true},
		{name: "other class", filter: Filter{ClassID: "c2"}},
		{name: "other student", filter: Filter{StudentID: "s2"}},
		{name: "inclusive bounds", filter: Filter{From: r.Date, To: r.Date}, want: true},
		{name: "before range", filter: Filter{From: r.Date.AddDays(1)}},
		{name: "after range", filter: Filter{To: r.Date.AddDays(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(r); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
