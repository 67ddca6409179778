package panel

import (
	"reflect"
	"testing"

	"github.com/jasmine-z2a/studio/internal/model"
)

func rec(level uint8, name, message string) model.LogRecord {
	return model.LogRecord{Level: level, Name: name, Message: message}
}

func TestApplyLevelFloorOnly(t *testing.T) {
	records := []model.LogRecord{
		rec(model.LevelInfo, "nodeA", "hello"),
		rec(model.LevelError, "nodeB", "fail"),
	}
	spec := model.FilterSpec{MinLevel: model.LevelWarn}

	got := Apply(records, spec)
	want := []model.LogRecord{rec(model.LevelError, "nodeB", "fail")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
}

func TestApplySearchTermMatchesMessage(t *testing.T) {
	records := []model.LogRecord{
		rec(model.LevelInfo, "nodeA", "hello"),
		rec(model.LevelError, "nodeB", "fail"),
	}
	spec := model.FilterSpec{MinLevel: model.LevelDebug, SearchTerms: []string{"fail"}}

	got := Apply(records, spec)
	if len(got) != 1 || got[0].Message != "fail" {
		t.Errorf("Apply() = %v, want only the 'fail' record", got)
	}
}

func TestApplySearchTermMatchesName(t *testing.T) {
	records := []model.LogRecord{
		rec(model.LevelInfo, "camera_driver", "frame dropped"),
		rec(model.LevelInfo, "imu", "bias updated"),
	}
	spec := model.FilterSpec{SearchTerms: []string{"camera"}}

	got := Apply(records, spec)
	if len(got) != 1 || got[0].Name != "camera_driver" {
		t.Errorf("Apply() = %v, want only the camera_driver record", got)
	}
}

func TestApplyTermsAreORed(t *testing.T) {
	records := []model.LogRecord{
		rec(model.LevelInfo, "a", "motor stalled"),
		rec(model.LevelInfo, "b", "battery low"),
		rec(model.LevelInfo, "c", "all nominal"),
	}
	spec := model.FilterSpec{SearchTerms: []string{"motor", "battery"}}

	got := Apply(records, spec)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("Apply() = %v, want records a and b in order", got)
	}
}

func TestApplyCaseSensitive(t *testing.T) {
	records := []model.LogRecord{
		rec(model.LevelInfo, "n", "Motor stalled"),
	}
	if got := Apply(records, model.FilterSpec{SearchTerms: []string{"motor"}}); len(got) != 0 {
		t.Errorf("lowercase term matched %v, matching should be case-sensitive", got)
	}
	if got := Apply(records, model.FilterSpec{SearchTerms: []string{"Motor"}}); len(got) != 1 {
		t.Errorf("exact-case term did not match, got %v", got)
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	var records []model.LogRecord
	for i := 0; i < 20; i++ {
		lvl := uint8(model.LevelInfo)
		if i%3 == 0 {
			lvl = model.LevelError
		}
		records = append(records, model.LogRecord{Timestamp: int64(i), Level: lvl, Message: "m"})
	}
	spec := model.FilterSpec{MinLevel: model.LevelError}

	got := Apply(records, spec)
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp <= got[i-1].Timestamp {
			t.Fatalf("output reordered at index %d: %v", i, got)
		}
	}
	// Every output element passes; every excluded element fails.
	for _, r := range got {
		if !Matches(r, spec) {
			t.Errorf("output contains non-matching record %v", r)
		}
	}
	excluded := len(records) - len(got)
	failCount := 0
	for _, r := range records {
		if !Matches(r, spec) {
			failCount++
		}
	}
	if failCount != excluded {
		t.Errorf("excluded %d records but %d fail the predicate", excluded, failCount)
	}
}

func TestApplyIdempotent(t *testing.T) {
	records := []model.LogRecord{
		rec(model.LevelDebug, "a", "one"),
		rec(model.LevelWarn, "b", "two"),
		rec(model.LevelFatal, "c", "three"),
	}
	spec := model.FilterSpec{MinLevel: model.LevelWarn, SearchTerms: []string{"t"}}

	once := Apply(records, spec)
	twice := Apply(once, spec)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Apply is not idempotent: %v vs %v", once, twice)
	}
}

func TestApplyUnknownLevelPassesFloor(t *testing.T) {
	records := []model.LogRecord{rec(model.LevelUnknown, "n", "strange")}
	got := Apply(records, model.FilterSpec{MinLevel: model.LevelFatal})
	if len(got) != 1 {
		t.Errorf("unknown-level record was hidden by the severity floor")
	}
}

func TestApplyEmptyInput(t *testing.T) {
	got := Apply(nil, model.FilterSpec{MinLevel: model.LevelWarn, SearchTerms: []string{"x"}})
	if len(got) != 0 {
		t.Errorf("Apply(nil) = %v, want empty", got)
	}
}

// The two scenario rows from the panel's original behavior.
func TestApplyScenarios(t *testing.T) {
	records := []model.LogRecord{
		rec(1, "nodeA", "hello"),
		rec(3, "nodeB", "fail"),
	}

	t.Run("level floor", func(t *testing.T) {
		got := Apply(records, model.FilterSpec{MinLevel: 2})
		if len(got) != 1 || got[0].Level != 3 || got[0].Message != "fail" {
			t.Errorf("got %v, want only {level:3, message:fail}", got)
		}
	})

	t.Run("message text match", func(t *testing.T) {
		got := Apply(records, model.FilterSpec{MinLevel: 0, SearchTerms: []string{"fail"}})
		if len(got) != 1 || got[0].Level != 3 {
			t.Errorf("got %v, want only {level:3}", got)
		}
	})
}
