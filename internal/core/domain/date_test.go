package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.March, 9)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-09"` {
		t.Fatalf("unexpected encoding: %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed the date: %v", back)
	}
}

func TestDate_UnmarshalAcceptsTimestampAndEmpty(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-09T17:00:00.000+07:00"`), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-03-09" {
		t.Fatalf("expected the calendar day to be kept, got %s", d)
	}

	for _, in := range []string{`null`, `""`} {
		d = NewDate(2000, time.January, 1)
		if err := json.Unmarshal([]byte(in), &d); err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if !d.IsZero() {
			t.Fatalf("%s: expected zero date, got %v", in, d)
		}
	}

	if err := json.Unmarshal([]byte(`"09/03/2024"`), &d); err == nil {
		t.Fatal("expected an error for a non ISO date")
	}
}

func TestDate_ZeroMarshalsNull(t *testing.T) {
	b, _ := json.Marshal(Date{})
	if string(b) != "null" {
		t.Fatalf("expected null, got %s", b)
	}
}

func TestTimestamp_UnmarshalLayouts(t *testing.T) {
	cases := []string{
		`"2024-05-01T08:30:00Z"`,
		`"2024-05-01T08:30:00.123456"`,
		`"2024-05-01T08:30:00"`,
	}
	for _, in := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(in), &ts); err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if ts.Hour() != 8 || ts.Minute() != 30 {
			t.Fatalf("%s: unexpected clock %v", in, ts)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected an error for an unknown layout")
	}
}
