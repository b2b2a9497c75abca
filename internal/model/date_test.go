package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMonthLength(t *testing.T) {
	tests := []struct {
		month Month
		want  int
	}{
		{Month{2024, time.January}, 31},
		{Month{2024, time.February}, 29},
		{Month{2023, time.February}, 28},
		{Month{2024, time.April}, 30},
		{Month{2024, time.December}, 31},
	}
	for _, tt := range tests {
		if got := tt.month.Length(); got != tt.want {
			t.Errorf("%s Length() = %d, want %d", tt.month, got, tt.want)
		}
	}
}

func TestDateAddDaysCrossesBoundaries(t *testing.T) {
	d := NewDate(2024, time.March, 1)
	if got := d.AddDays(-1); got != NewDate(2024, time.February, 29) {
		t.Fatalf("AddDays(-1) = %s, want 2024-02-29", got)
	}
	if got := NewDate(2023, time.December, 31).AddDays(1); got != NewDate(2024, time.January, 1) {
		t.Fatalf("AddDays(1) = %s, want 2024-01-01", got)
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2024, time.January, 31)
	b := NewDate(2024, time.February, 1)
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Fatalf("ordering broken between %s and %s", a, b)
	}
	if a.Before(a) {
		t.Fatal("date reported before itself")
	}
}

func TestMonthNavigation(t *testing.T) {
	m := Month{2024, time.December}
	if got := m.Next(); got != (Month{2025, time.January}) {
		t.Fatalf("Next() = %s", got)
	}
	if got := (Month{2024, time.January}).Prev(); got != (Month{2023, time.December}) {
		t.Fatalf("Prev() = %s", got)
	}
	if !(Month{2023, time.December}).Before(m) {
		t.Fatal("2023-12 should be before 2024-12")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d != NewDate(2024, time.January, 5) {
		t.Fatalf("ParseDate = %s", d)
	}
	if _, err := ParseDate("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("ParseDate(bad) err = %v, want ErrInvalidDate", err)
	}
}

func TestDaysJSONUsesISOKeysAndTags(t *testing.T) {
	days := Days{
		NewDate(2024, time.January, 1): StatusClean,
		NewDate(2024, time.January, 3): StatusHeart,
	}
	data, err := json.Marshal(days)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"2024-01-01":"CLEAN","2024-01-03":"HEART"}`
	if string(data) != want {
		t.Fatalf("Marshal = %s, want %s", data, want)
	}

	var back Days
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(days) {
		t.Fatalf("round trip mismatch: %v", back)
	}
}

func TestCountInMonth(t *testing.T) {
	days := Days{
		NewDate(2024, time.January, 1):  StatusHeart,
		NewDate(2024, time.January, 2):  StatusHeart,
		NewDate(2024, time.February, 1): StatusHeart,
		NewDate(2024, time.January, 9):  StatusClean,
	}
	if got := days.CountInMonth(Month{2024, time.January}, StatusHeart); got != 2 {
		t.Fatalf("CountInMonth = %d, want 2", got)
	}
	if got := days.Count(StatusHeart); got != 3 {
		t.Fatalf("Count(HEART) = %d, want 3", got)
	}
	if got := days.Count(StatusClean); got != 1 {
		t.Fatalf("Count(CLEAN) = %d, want 1", got)
	}
}

func TestDateValid(t *testing.T) {
	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2024, time.February, 29), true},
		{Date{Year: 2024, Month: time.February, Day: 30}, false},
		{Date{Year: 2023, Month: time.February, Day: 29}, false},
		{Date{Year: 2024, Month: 13, Day: 1}, false},
		{Date{Year: 2024, Month: time.March, Day: 0}, false},
		{Date{}, false},
	}
	for _, tc := range cases {
		if got := tc.d.Valid(); got != tc.want {
			t.Errorf("%s.Valid() = %v, want %v", tc.d, got, tc.want)
		}
	}
}
