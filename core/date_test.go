package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Date Date `json:"date"`
	}

	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "day", in: `{"date": "2021-03-02"}`, want: DateOf(2021, time.March, 2)},
		{name: "null", in: `{"date": null}`},
		{name: "empty", in: `{"date": ""}`},
		{name: "invalid", in: `{"date": "March 2nd"}`, wantErr: true},
		{name: "not a string", in: `{"date": 20210302}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := json.Unmarshal([]byte(tt.in), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !p.Date.Equal(tt.want) {
				t.Errorf("Unmarshal() = %v, want %v", p.Date, tt.want)
			}
		})
	}

	out, _ := json.Marshal(payload{})
	if string(out) != `{"date":null}` {
		t.Errorf("Marshal() = %s, want null date", out)
	}
	out, _ = json.Marshal(payload{Date: DateOf(2021, time.March, 2)})
	if string(out) != `{"date":"2021-03-02"}` {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestDate_Scan(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	tests := []struct {
		name  string
		value interface{}
		want  Date
	}{
		{name: "nil", value: nil},
		{name: "time", value: time.Date(2021, time.March, 2, 23, 0, 0, 0, eat), want: DateOf(2021, time.March, 2)},
		{name: "string", value: "2021-03-02", want: DateOf(2021, time.March, 2)},
		{name: "timestamp bytes", value: []byte("2021-03-02T00:00:00Z"), want: DateOf(2021, time.March, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := d.Scan(tt.value); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if !d.Equal(tt.want) {
				t.Errorf("Scan() = %v, want %v", d, tt.want)
			}
		})
	}

	var d Date
	if err := d.Scan(42); err == nil {
		t.Error("Scan(42) error = nil")
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		val    float64
		places int
		want   float64
	}{
		{val: 66.666, places: 1, want: 66.7},
		{val: 0.1 + 0.2, places: 2, want: 0.3},
		{val: 349.499, places: 2, want: 349.5},
	}
	for _, tt := range tests {
		if got := Round(tt.val, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.val, tt.places, got, tt.want)
		}
	}
}
