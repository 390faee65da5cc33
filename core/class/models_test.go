package class

import (
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

func TestClass_Expired(t *testing.T) {
	today := core.DateOf(2021, time.March, 2)
	tests := []struct {
		name string
		end  core.Date
		want bool
	}{
		{name: "open ended"},
		{name: "ends later", end: today.AddDays(1)},
		{name: "ends today", end: today, want: true},
		{name: "ended", end: today.AddDays(-1), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Class{EndDate: tt.end}).Expired(today); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewClass_Validate(t *testing.T) {
	valid := func() NewClass {
		return NewClass{Name: " Form 1 ", Subject: "Maths", Teacher: "Mr Juma", StartDate: "2021-01-04"}
	}

	tests := []struct {
		name    string
		mutate  func(nc *NewClass)
		wantErr bool
	}{
		{name: "valid", mutate: func(nc *NewClass) {}},
		{name: "with end", mutate: func(nc *NewClass) { nc.EndDate = "2021-12-17" }},
		{name: "same day", mutate: func(nc *NewClass) { nc.EndDate = nc.StartDate }},
		{name: "blank name", mutate: func(nc *NewClass) { nc.Name = "  " }, wantErr: true},
		{name: "bad start", mutate: func(nc *NewClass) { nc.StartDate = "04/01/2021" }, wantErr: true},
		{name: "end before start", mutate: func(nc *NewClass) { nc.EndDate = "2020-12-31" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := valid()
			tt.mutate(&nc)
			if err := nc.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("cleans", func(t *testing.T) {
		nc := valid()
		_ = nc.Validate()
		if nc.Name != "Form 1" {
			t.Errorf("Validate() name = %q, want %q", nc.Name, "Form 1")
		}
	})
}

func TestUpdateClass_Validate(t *testing.T) {
	orig := Class{
		Name:      "Form 1",
		Subject:   "Maths",
		Teacher:   "Mr Juma",
		StartDate: core.DateOf(2021, time.January, 4),
		EndDate:   core.DateOf(2021, time.December, 17),
	}

	uc := UpdateClass{Teacher: "Ms Achieng"}
	if err := uc.Validate(orig); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}
	if uc.Name != orig.Name || uc.Teacher != "Ms Achieng" || *uc.EndDate != "2021-12-17" {
		t.Errorf("Validate() = %+v, want the original name & end date", uc)
	}

	empty := ""
	uc = UpdateClass{EndDate: &empty}
	if err := uc.Validate(orig); err != nil || *uc.EndDate != "" {
		t.Errorf("Validate() clearing end date: %v, %q", err, *uc.EndDate)
	}

	early := "2021-01-01"
	uc = UpdateClass{EndDate: &early}
	if err := uc.Validate(orig); err == nil {
		t.Error("Validate() error = nil, want end date before start date")
	}

	bad := "17/12/2021"
	uc = UpdateClass{EndDate: &bad}
	if err := uc.Validate(orig); err == nil {
		t.Error("Validate() error = nil, want badly formatted end date")
	}

	open := orig
	open.EndDate = core.Date{}
	uc = UpdateClass{Name: "Form 2"}
	if err := uc.Validate(open); err != nil {
		t.Fatalf("Validate() open ended class: unexpected error = %v", err)
	}
	if uc.Name != "Form 2" || *uc.EndDate != "" {
		t.Errorf("Validate() open ended class = %+v, want renamed & still open ended", uc)
	}
}
