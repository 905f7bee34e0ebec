package recurrence

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func collect(t *testing.T, rules []Rule, from, to time.Time, w Window) []LocalInterval {
	t.Helper()
	seq, err := Expand(rules, from, to, w)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	return slices.Collect(seq)
}

func TestExpand_TuesdayOverTwoWeeks(t *testing.T) {
	// 2024-06-03 is a Monday.
	rules := []Rule{{DayOfWeek: 1, StartHour: 9, EndHour: 12}}
	got := collect(t, rules, date(2024, 6, 3), date(2024, 6, 16), Window{From: date(2024, 1, 1)})

	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %v", len(got), got)
	}
	for _, li := range got {
		if li.Date.Weekday() != time.Tuesday {
			t.Errorf("interval on %s, want Tuesday", li.Date.Weekday())
		}
		if d := li.End.Sub(li.Start); d != 3*time.Hour {
			t.Errorf("duration = %v, want 3h", d)
		}
		if li.Start.Hour() != 9 {
			t.Errorf("start hour = %d, want 9", li.Start.Hour())
		}
	}
	if !got[0].End.Before(got[1].Start) {
		t.Error("intervals overlap")
	}
}

func TestExpand_NoRules(t *testing.T) {
	got := collect(t, nil, date(2024, 6, 3), date(2024, 6, 30), Window{From: date(2024, 1, 1)})
	if len(got) != 0 {
		t.Errorf("expected no intervals, got %v", got)
	}
}

func TestExpand_FractionalHours(t *testing.T) {
	rules := []Rule{{DayOfWeek: 0, StartHour: 9.5, EndHour: 12.25}}
	got := collect(t, rules, date(2024, 6, 3), date(2024, 6, 3), Window{From: date(2024, 1, 1)})

	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %v", got)
	}
	if got[0].Start != time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC) {
		t.Errorf("start = %v, want 09:30", got[0].Start)
	}
	if got[0].End != time.Date(2024, 6, 3, 12, 15, 0, 0, time.UTC) {
		t.Errorf("end = %v, want 12:15", got[0].End)
	}
}

func TestExpand_ClipsToValidityWindow(t *testing.T) {
	rules := []Rule{{DayOfWeek: 0, StartHour: 9, EndHour: 17}}
	w := Window{From: date(2024, 6, 10), To: ptr(date(2024, 6, 17))}
	got := collect(t, rules, date(2024, 6, 1), date(2024, 6, 30), w)

	if len(got) != 2 {
		t.Fatalf("expected Mondays 10th and 17th, got %v", got)
	}
	if got[0].Date != date(2024, 6, 10) || got[1].Date != date(2024, 6, 17) {
		t.Errorf("unexpected dates %v, %v", got[0].Date, got[1].Date)
	}
}

func TestExpand_RuleEffectiveRange(t *testing.T) {
	rules := []Rule{
		{DayOfWeek: 2, StartHour: 9, EndHour: 12, Source: "always"},
		{DayOfWeek: 2, StartHour: 14, EndHour: 17, EffectiveFrom: ptr(date(2024, 6, 12)), EffectiveTo: ptr(date(2024, 6, 12)), Source: "once"},
	}
	got := collect(t, rules, date(2024, 6, 3), date(2024, 6, 23), Window{From: date(2024, 1, 1)})

	var once int
	for _, li := range got {
		if li.Source == "once" {
			once++
			if li.Date != date(2024, 6, 12) {
				t.Errorf("effective rule emitted on %v", li.Date)
			}
		}
	}
	if once != 1 || len(got) != 4 {
		t.Errorf("expected 3 always + 1 once, got %v", got)
	}
}

func TestExpand_OrdersByDateThenStart(t *testing.T) {
	rules := []Rule{
		{DayOfWeek: 0, StartHour: 14, EndHour: 17},
		{DayOfWeek: 0, StartHour: 9, EndHour: 12},
		{DayOfWeek: 1, StartHour: 9, EndHour: 12},
	}
	got := collect(t, rules, date(2024, 6, 3), date(2024, 6, 4), Window{From: date(2024, 1, 1)})

	if len(got) != 3 {
		t.Fatalf("expected 3 intervals, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Start.Before(got[i].Start) {
			t.Errorf("intervals out of order: %v", got)
		}
	}
}

func TestExpand_EndOfDay(t *testing.T) {
	rules := []Rule{{DayOfWeek: 6, StartHour: 20, EndHour: 24}}
	got := collect(t, rules, date(2024, 6, 9), date(2024, 6, 9), Window{From: date(2024, 1, 1)})

	if len(got) != 1 || got[0].End != date(2024, 6, 10) {
		t.Fatalf("expected interval ending at next midnight, got %v", got)
	}
}

func TestExpand_StopsEarly(t *testing.T) {
	rules := []Rule{{DayOfWeek: 0, StartHour: 9, EndHour: 10}}
	seq, err := Expand(rules, date(2024, 1, 1), date(2024, 12, 31), Window{From: date(2024, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("expected to stop after 3, got %d", n)
	}
	// recomputed on a second pass
	if again := len(slices.Collect(seq)); again != 53 {
		t.Errorf("expected 53 Mondays in 2024, got %d", again)
	}
}

func TestExpand_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		from  time.Time
		to    time.Time
		w     Window
		want  error
	}{
		{name: "day out of range", rules: []Rule{{DayOfWeek: 7, StartHour: 9, EndHour: 10}}, from: date(2024, 6, 3), to: date(2024, 6, 4), want: ErrInvalidDayOfWeek},
		{name: "end before start", rules: []Rule{{DayOfWeek: 1, StartHour: 12, EndHour: 9}}, from: date(2024, 6, 3), to: date(2024, 6, 4), want: ErrInvalidHourRange},
		{name: "start at 24", rules: []Rule{{DayOfWeek: 1, StartHour: 24, EndHour: 24}}, from: date(2024, 6, 3), to: date(2024, 6, 4), want: ErrInvalidHourRange},
		{name: "negative start", rules: []Rule{{DayOfWeek: 1, StartHour: -1, EndHour: 9}}, from: date(2024, 6, 3), to: date(2024, 6, 4), want: ErrInvalidHourRange},
		{
			name:  "effective range inverted",
			rules: []Rule{{DayOfWeek: 1, StartHour: 9, EndHour: 10, EffectiveFrom: ptr(date(2024, 6, 10)), EffectiveTo: ptr(date(2024, 6, 1))}},
			from:  date(2024, 6, 3), to: date(2024, 6, 4), want: ErrInvalidEffective,
		},
		{name: "date range inverted", from: date(2024, 6, 4), to: date(2024, 6, 3), want: ErrInvalidDateRange},
		{name: "validity inverted", from: date(2024, 6, 3), to: date(2024, 6, 4), w: Window{From: date(2024, 6, 10), To: ptr(date(2024, 6, 1))}, want: ErrInvalidScheduleEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.rules, tt.from, tt.to, tt.w)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expand() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHoursToDuration(t *testing.T) {
	if got := HoursToDuration(9.5); got != 9*time.Hour+30*time.Minute {
		t.Errorf("HoursToDuration(9.5) = %v", got)
	}
	if got := HoursToDuration(1.0 / 3); got != 20*time.Minute {
		t.Errorf("HoursToDuration(1/3) = %v", got)
	}
}

func TestDateOf_UsesOwnLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	got := DateOf(time.Date(2024, 6, 4, 1, 0, 0, 0, tokyo))
	if got != date(2024, 6, 4) {
		t.Errorf("DateOf() = %v, want 2024-06-04", got)
	}
}
