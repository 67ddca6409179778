package panel

import (
	"reflect"
	"testing"

	"github.com/jasmine-z2a/studio/internal/model"
)

type countingViewport struct {
	scrolls int
}

func (v *countingViewport) ScrollToBottom() { v.scrolls++ }

func TestPanelScrollsOnlyWhenBatchBecomesVisible(t *testing.T) {
	p := New(NewRegistry(), "")
	vp := &countingViewport{}
	p.AttachViewport(vp)
	p.SetFilter(model.FilterSpec{MinLevel: model.LevelError})

	visible := p.HandleNewRecords([]model.LogRecord{
		rec(model.LevelInfo, "a", "quiet"),
		rec(model.LevelDebug, "b", "quieter"),
	})
	if len(visible) != 0 {
		t.Fatalf("visible = %d records, want 0", len(visible))
	}
	if vp.scrolls != 0 {
		t.Errorf("scrolled on fully filtered batch")
	}

	visible = p.HandleNewRecords([]model.LogRecord{
		rec(model.LevelInfo, "a", "quiet"),
		rec(model.LevelError, "c", "boom"),
	})
	if len(visible) != 1 || visible[0].Message != "boom" {
		t.Fatalf("visible = %+v, want the error record", visible)
	}
	if vp.scrolls != 1 {
		t.Errorf("scrolls = %d, want 1", vp.scrolls)
	}
}

func TestPanelSeenNamesSurviveTopicChange(t *testing.T) {
	p := New(NewRegistry(), "")
	p.HandleNewRecords([]model.LogRecord{
		rec(model.LevelInfo, "nodeA", "x"),
		rec(model.LevelInfo, "nodeB", "y"),
	})
	p.SetTopic("/other")
	p.HandleNewRecords([]model.LogRecord{rec(model.LevelInfo, "nodeC", "z")})

	want := []string{"nodeA", "nodeB", "nodeC"}
	if got := p.SeenNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("SeenNames() = %v, want %v", got, want)
	}
}

func TestPanelSeenNamesAccumulateFromFilteredRecords(t *testing.T) {
	p := New(NewRegistry(), "")
	p.SetFilter(model.FilterSpec{MinLevel: model.LevelFatal})
	p.HandleNewRecords([]model.LogRecord{rec(model.LevelDebug, "hidden", "x")})
	if got := p.SeenNames(); !reflect.DeepEqual(got, []string{"hidden"}) {
		t.Errorf("SeenNames() = %v, names must accumulate regardless of the filter", got)
	}
}

func TestPanelVisibleObservesNames(t *testing.T) {
	p := New(NewRegistry(), "")
	p.SetFilter(model.FilterSpec{SearchTerms: []string{"match"}})
	out := p.Visible([]model.LogRecord{
		rec(model.LevelInfo, "keeper", "a match"),
		rec(model.LevelInfo, "dropped", "no"),
	})
	if len(out) != 1 || out[0].Name != "keeper" {
		t.Fatalf("Visible = %+v", out)
	}
	if got := p.SeenNames(); !reflect.DeepEqual(got, []string{"dropped", "keeper"}) {
		t.Errorf("SeenNames() = %v", got)
	}
}

func TestPanelConfigRoundtrip(t *testing.T) {
	p := New(NewRegistry(), "")
	p.SetTopic("/rosout_agg")
	p.SetFilter(model.FilterSpec{MinLevel: model.LevelWarn, SearchTerms: []string{"imu", "lidar"}})

	cfg := p.Config()
	q := New(NewRegistry(), "")
	q.Restore(cfg)

	if got := q.Filter(); !reflect.DeepEqual(got, p.Filter()) {
		t.Errorf("restored filter = %+v, want %+v", got, p.Filter())
	}
	topics := []model.TopicDescriptor{
		{Name: "/rosout", Datatype: "rosgraph_msgs/Log"},
		{Name: "/rosout_agg", Datatype: "rosgraph_msgs/Log"},
	}
	if got := q.Topic(topics); got != "/rosout_agg" {
		t.Errorf("restored topic = %q, want /rosout_agg", got)
	}
}

func TestPanelRestoreClampsStoredLevel(t *testing.T) {
	p := New(NewRegistry(), "")
	p.Restore(model.PanelConfig{MinLogLevel: -3})
	if got := p.Filter().MinLevel; got != model.LevelDebug {
		t.Errorf("negative stored level restored as %d, want no floor", got)
	}
	p.Restore(model.PanelConfig{MinLogLevel: 300})
	if got := p.Filter().MinLevel; got != model.LevelUnknown {
		t.Errorf("oversized stored level restored as %d, want %d", got, model.LevelUnknown)
	}
}

func TestPanelTopicResolution(t *testing.T) {
	p := New(NewRegistry(), "")
	topics := []model.TopicDescriptor{
		{Name: "/imu", Datatype: "sensor_msgs/Imu"},
		{Name: "/log", Datatype: "foxglove.Log"},
	}
	if got := p.Topic(topics); got != "/log" {
		t.Errorf("Topic = %q, want first log-typed topic", got)
	}
	if got := p.Topic(nil); got != DefaultTopic {
		t.Errorf("Topic on empty catalog = %q, want %q", got, DefaultTopic)
	}

	p.SetTopic("/gone")
	if got := p.Topic(topics); got != "/gone" {
		t.Errorf("Topic with stale explicit choice = %q, want /gone", got)
	}
}

func TestPanelScrollStateFlow(t *testing.T) {
	p := New(NewRegistry(), "")
	vp := &countingViewport{}
	p.AttachViewport(vp)

	p.HandleScroll()
	if !p.JumpControlVisible() {
		t.Fatal("manual scroll must pause following")
	}
	p.HandleNewRecords([]model.LogRecord{rec(model.LevelInfo, "a", "x")})
	if vp.scrolls != 0 {
		t.Errorf("scrolled while paused")
	}

	p.JumpToBottom()
	if p.JumpControlVisible() {
		t.Error("jump must resume following")
	}
	if vp.scrolls != 1 {
		t.Errorf("scrolls = %d, want 1 after jump", vp.scrolls)
	}
}
