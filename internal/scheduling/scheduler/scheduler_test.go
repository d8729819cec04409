package scheduler

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hearthward/conductor/internal/scheduling/facts"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func newScheduler(t *testing.T, seqs []Sequence, loc *time.Location) *Scheduler {
	t.Helper()
	s, err := New(seqs, facts.SchedulerFields(facts.FieldDecls{}), loc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func classifiedDay(t *testing.T, date string, today ...string) *facts.DayFacts {
	t.Helper()
	d, err := facts.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate(%q) failed: %v", date, err)
	}
	day := facts.NewDayFacts(d)
	day.Today = make(map[string]struct{}, len(today))
	for _, tag := range today {
		day.Today[tag] = struct{}{}
	}
	day.Tomorrow = map[string]struct{}{}
	return day
}

func morningSequence() Sequence {
	return Sequence{
		ID: "morning",
		If: []string{"'school_day' in today"},
		Tasks: []TaskTemplate{{
			Title:     "wake lights",
			Payload:   `{"action":"on"}`,
			Locations: []string{"bedroom"},
			Devices:   []string{"light"},
			Time:      TimeOfDay{Hour: 7},
		}},
	}
}

// ─── Applicability ──────────────────────────────────────────────────────────

func TestScheduleSelectsApplicableSequences(t *testing.T) {
	s := newScheduler(t, []Sequence{morningSequence()}, time.UTC)

	plan, err := s.Schedule(classifiedDay(t, "2026-09-01", "school_day"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(plan.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(plan.Tasks))
	}

	task := plan.Tasks[0]
	want := time.Date(2026, time.September, 1, 7, 0, 0, 0, time.UTC)
	if !task.Time.Equal(want) {
		t.Errorf("trigger = %v, want %v", task.Time, want)
	}
	if !reflect.DeepEqual(task.Topics, []string{"command/bedroom/light"}) {
		t.Errorf("topics = %v", task.Topics)
	}

	// A weekend day excludes the sequence entirely.
	plan, err = s.Schedule(classifiedDay(t, "2026-09-05", "weekend"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(plan.Tasks) != 0 {
		t.Errorf("expected empty plan, got %d tasks", len(plan.Tasks))
	}
}

func TestScheduleTodayTagsMustAllMatch(t *testing.T) {
	seq := Sequence{
		ID:    "bins",
		Today: []string{"workday", "bin_night"},
		Tasks: []TaskTemplate{{
			Title: "bin reminder", Payload: "remind",
			Locations: []string{"kitchen"}, Devices: []string{"display"},
			Time: TimeOfDay{Hour: 19},
		}},
	}
	s := newScheduler(t, []Sequence{seq}, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01", "workday", "bin_night"))
	if len(plan.Tasks) != 1 {
		t.Errorf("expected match with both tags, got %d tasks", len(plan.Tasks))
	}

	plan, _ = s.Schedule(classifiedDay(t, "2026-09-02", "workday"))
	if len(plan.Tasks) != 0 {
		t.Errorf("expected no match with a tag missing, got %d tasks", len(plan.Tasks))
	}
}

func TestScheduleEmptyConditionsApplyEveryDay(t *testing.T) {
	seq := Sequence{
		ID: "nightly",
		Tasks: []TaskTemplate{{
			Title: "all off", Payload: "off",
			Locations: []string{"house"}, Devices: []string{"lights"},
			Time: TimeOfDay{Hour: 23, Minute: 30},
		}},
	}
	s := newScheduler(t, []Sequence{seq}, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01"))
	if len(plan.Tasks) != 1 {
		t.Errorf("expected unconditional sequence to apply, got %d tasks", len(plan.Tasks))
	}
}

// ─── Ordering & Determinism ─────────────────────────────────────────────────

func TestSchedulePlanIsTimeOrdered(t *testing.T) {
	seqs := []Sequence{
		{ID: "evening", Tasks: []TaskTemplate{
			{Title: "dim", Payload: "p", Locations: []string{"lounge"}, Devices: []string{"light"},
				Time: TimeOfDay{Hour: 20}},
			{Title: "off", Payload: "p", Locations: []string{"lounge"}, Devices: []string{"light"},
				Time: TimeOfDay{Hour: 22}},
		}},
		{ID: "morning", Tasks: []TaskTemplate{
			{Title: "on", Payload: "p", Locations: []string{"hall"}, Devices: []string{"light"},
				Time: TimeOfDay{Hour: 7}},
		}},
	}
	s := newScheduler(t, seqs, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01"))
	var titles []string
	for _, task := range plan.Tasks {
		titles = append(titles, task.Title)
	}
	if !reflect.DeepEqual(titles, []string{"on", "dim", "off"}) {
		t.Errorf("task order = %v", titles)
	}
}

func TestScheduleTiesKeepDeclarationOrder(t *testing.T) {
	task := func(title string) TaskTemplate {
		return TaskTemplate{Title: title, Payload: "p",
			Locations: []string{"x"}, Devices: []string{"y"},
			Time: TimeOfDay{Hour: 12}}
	}
	seqs := []Sequence{
		{ID: "first", Tasks: []TaskTemplate{task("a"), task("b")}},
		{ID: "second", Tasks: []TaskTemplate{task("c")}},
	}
	s := newScheduler(t, seqs, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01"))
	var titles []string
	for _, tk := range plan.Tasks {
		titles = append(titles, tk.Title)
	}
	if !reflect.DeepEqual(titles, []string{"a", "b", "c"}) {
		t.Errorf("tie-break order = %v", titles)
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	seqs := []Sequence{morningSequence(), {
		ID:     "evening",
		Repeat: Repeat{Count: 3, Every: Duration{10 * time.Minute}},
		Tasks: []TaskTemplate{{
			Title: "pulse", Payload: "p",
			Locations: []string{"garden", "porch"}, Devices: []string{"light", "fountain"},
			Time: TimeOfDay{Hour: 18},
		}},
	}}
	s := newScheduler(t, seqs, time.UTC)

	day := classifiedDay(t, "2026-09-01", "school_day")
	first, err := s.Schedule(day)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	second, err := s.Schedule(day)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// Only RunID may differ between rebuilds.
	if first.RunID == second.RunID {
		t.Error("rebuilds should carry distinct run ids")
	}
	if !reflect.DeepEqual(first.Tasks, second.Tasks) {
		t.Error("identical inputs produced different task lists")
	}
}

// ─── Expansion ──────────────────────────────────────────────────────────────

func TestScheduleExpandsRepeats(t *testing.T) {
	seq := Sequence{
		ID:     "water",
		Repeat: Repeat{Count: 3, Every: Duration{30 * time.Minute}},
		Tasks: []TaskTemplate{{
			Title: "sprinkle", Payload: "p",
			Locations: []string{"garden"}, Devices: []string{"sprinkler"},
			Time: TimeOfDay{Hour: 6},
		}},
	}
	s := newScheduler(t, []Sequence{seq}, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01"))
	if len(plan.Tasks) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(plan.Tasks))
	}
	base := time.Date(2026, time.September, 1, 6, 0, 0, 0, time.UTC)
	for i, task := range plan.Tasks {
		want := base.Add(time.Duration(i) * 30 * time.Minute)
		if !task.Time.Equal(want) {
			t.Errorf("occurrence %d at %v, want %v", i, task.Time, want)
		}
		if task.Occurrence != i {
			t.Errorf("occurrence ordinal = %d, want %d", task.Occurrence, i)
		}
	}
}

func TestScheduleCrossesLocationsAndDevices(t *testing.T) {
	seq := Sequence{
		ID: "party",
		Tasks: []TaskTemplate{{
			Title: "music on", Payload: "p",
			Locations: []string{"lounge", "kitchen"},
			Devices:   []string{"speaker", "light"},
			Time:      TimeOfDay{Hour: 19},
		}},
	}
	s := newScheduler(t, []Sequence{seq}, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01"))
	want := []string{
		"command/lounge/speaker",
		"command/lounge/light",
		"command/kitchen/speaker",
		"command/kitchen/light",
	}
	if !reflect.DeepEqual(plan.Tasks[0].Topics, want) {
		t.Errorf("topics = %v, want %v", plan.Tasks[0].Topics, want)
	}
}

func TestScheduleResolvesSiteTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	s := newScheduler(t, []Sequence{morningSequence()}, loc)

	// 2026-09-01 is inside British Summer Time: 07:00 local is 06:00 UTC.
	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01", "school_day"))
	want := time.Date(2026, time.September, 1, 6, 0, 0, 0, time.UTC)
	if !plan.Tasks[0].Time.Equal(want) {
		t.Errorf("trigger = %v, want %v", plan.Tasks[0].Time, want)
	}

	// 2026-12-01 is outside BST: 07:00 local is 07:00 UTC.
	plan, _ = s.Schedule(classifiedDay(t, "2026-12-01", "school_day"))
	want = time.Date(2026, time.December, 1, 7, 0, 0, 0, time.UTC)
	if !plan.Tasks[0].Time.Equal(want) {
		t.Errorf("trigger = %v, want %v", plan.Tasks[0].Time, want)
	}

	// 01:30 is the wall time both London DST transitions touch.
	night := Sequence{
		ID: "night",
		If: []string{"'school_day' in today"},
		Tasks: []TaskTemplate{{
			Title:     "night vent",
			Payload:   `{"action":"on"}`,
			Locations: []string{"loft"},
			Devices:   []string{"fan"},
			Time:      TimeOfDay{Hour: 1, Minute: 30},
		}},
	}
	s = newScheduler(t, []Sequence{night}, loc)

	// 2026-03-29 01:30 falls inside the spring-forward gap; it
	// resolves forward to 02:30 BST, the same instant as 01:30 UTC.
	plan, _ = s.Schedule(classifiedDay(t, "2026-03-29", "school_day"))
	want = time.Date(2026, time.March, 29, 1, 30, 0, 0, time.UTC)
	if !plan.Tasks[0].Time.Equal(want) {
		t.Errorf("gap trigger = %v, want %v", plan.Tasks[0].Time, want)
	}

	// 2026-10-25 01:30 happens twice as the clock falls back; the
	// earlier pass, 01:30 BST, wins. That is 00:30 UTC.
	plan, _ = s.Schedule(classifiedDay(t, "2026-10-25", "school_day"))
	want = time.Date(2026, time.October, 25, 0, 30, 0, 0, time.UTC)
	if !plan.Tasks[0].Time.Equal(want) {
		t.Errorf("fold trigger = %v, want %v", plan.Tasks[0].Time, want)
	}
}

// ─── Validation ─────────────────────────────────────────────────────────────

func TestNewRejectsBadSequences(t *testing.T) {
	fields := facts.SchedulerFields(facts.FieldDecls{})
	goodTask := TaskTemplate{Title: "t", Payload: "p",
		Locations: []string{"x"}, Devices: []string{"y"}}

	cases := []struct {
		name string
		seqs []Sequence
		want error
	}{
		{"missing id", []Sequence{{Tasks: []TaskTemplate{goodTask}}}, ErrInvalidSequence},
		{"no tasks", []Sequence{{ID: "a"}}, ErrInvalidSequence},
		{"no devices", []Sequence{{ID: "a", Tasks: []TaskTemplate{
			{Title: "t", Locations: []string{"x"}}}}}, ErrInvalidSequence},
		{"repeat without spacing", []Sequence{{ID: "a",
			Repeat: Repeat{Count: 2},
			Tasks:  []TaskTemplate{goodTask}}}, ErrInvalidSequence},
		{"unknown field", []Sequence{{ID: "a", If: []string{"'x' in nowhere"},
			Tasks: []TaskTemplate{goodTask}}}, ErrInvalidSequence},
		{"duplicate id", []Sequence{
			{ID: "a", Tasks: []TaskTemplate{goodTask}},
			{ID: "a", Tasks: []TaskTemplate{goodTask}},
		}, ErrDuplicateSequence},
	}
	for _, tc := range cases {
		if _, err := New(tc.seqs, fields, time.UTC); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestScheduleLatestDefaults(t *testing.T) {
	s := newScheduler(t, []Sequence{morningSequence()}, time.UTC)

	plan, _ := s.Schedule(classifiedDay(t, "2026-09-01", "school_day"))
	task := plan.Tasks[0]
	if got := task.Latest.Sub(task.Time); got != time.Hour {
		t.Errorf("default latest horizon = %v, want 1h", got)
	}
}
