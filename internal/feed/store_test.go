package feed

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/jasmine-z2a/studio/internal/model"
)

func msg(i int) model.LogRecord {
	return model.LogRecord{
		Timestamp: int64(i),
		Level:     model.LevelInfo,
		Name:      "node",
		Message:   fmt.Sprintf("msg-%d", i),
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append(msg(i))
	}
	snap := h.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for i, r := range snap {
		if want := int64(i + 3); r.Timestamp != want {
			t.Errorf("snap[%d].Timestamp = %d, want %d", i, r.Timestamp, want)
		}
	}
}

func TestHistoryOversizedBatchKeepsTail(t *testing.T) {
	h := NewHistory(2)
	h.Append(msg(1), msg(2), msg(3), msg(4))
	snap := h.Snapshot()
	if len(snap) != 2 || snap[0].Timestamp != 3 || snap[1].Timestamp != 4 {
		t.Errorf("snapshot = %+v, want the last two records", snap)
	}
}

func TestHistoryBounds(t *testing.T) {
	h := NewHistory(10)
	if first, last := h.Bounds(); first != 0 || last != 0 {
		t.Errorf("empty Bounds = (%d, %d), want zeros", first, last)
	}
	h.Append(msg(2), msg(5), msg(9))
	if first, last := h.Bounds(); first != 2 || last != 9 {
		t.Errorf("Bounds = (%d, %d), want (2, 9)", first, last)
	}
}

func TestStoreTopicsFirstSeenOrder(t *testing.T) {
	s := NewStore(0)
	s.Append("/b", "foxglove.Log", msg(1))
	s.Append("/a", "rosgraph_msgs/Log", msg(2))
	s.Append("/b", "foxglove.Log", msg(3))

	want := []model.TopicDescriptor{
		{Name: "/b", Datatype: "foxglove.Log"},
		{Name: "/a", Datatype: "rosgraph_msgs/Log"},
	}
	if got := s.Topics(); !reflect.DeepEqual(got, want) {
		t.Errorf("Topics = %v, want %v", got, want)
	}

	dt, ok := s.Datatype("/a")
	if !ok || dt != "rosgraph_msgs/Log" {
		t.Errorf("Datatype(/a) = %q, %v", dt, ok)
	}
	if _, ok := s.Datatype("/missing"); ok {
		t.Error("unknown topic must not resolve a datatype")
	}
}

func TestStoreRecordsUnknownTopic(t *testing.T) {
	s := NewStore(0)
	if got := s.Records("/nothing"); len(got) != 0 {
		t.Errorf("Records on unknown topic = %v, want empty", got)
	}
}

func TestStoreSubscribeDeliversBatches(t *testing.T) {
	s := NewStore(0)
	sub := s.Subscribe("/rosout", 4)
	defer sub.Close()

	batch := []model.LogRecord{msg(1), msg(2)}
	s.Append("/rosout", "rosgraph_msgs/Log", batch...)

	select {
	case got := <-sub.C:
		if !reflect.DeepEqual(got, batch) {
			t.Errorf("delivered = %v, want %v", got, batch)
		}
	default:
		t.Fatal("no batch delivered")
	}
}

func TestStoreSubscribeIgnoresOtherTopics(t *testing.T) {
	s := NewStore(0)
	sub := s.Subscribe("/rosout", 4)
	defer sub.Close()

	s.Append("/other", "foxglove.Log", msg(1))
	select {
	case got := <-sub.C:
		t.Fatalf("unexpected delivery %v", got)
	default:
	}
}

func TestStoreSlowSubscriberDropsBatches(t *testing.T) {
	s := NewStore(0)
	sub := s.Subscribe("/rosout", 1)
	defer sub.Close()

	s.Append("/rosout", "rosgraph_msgs/Log", msg(1))
	s.Append("/rosout", "rosgraph_msgs/Log", msg(2))

	got := <-sub.C
	if got[0].Timestamp != 1 {
		t.Errorf("first delivery = %v, want the first batch", got)
	}
	select {
	case extra := <-sub.C:
		t.Fatalf("second batch should have been dropped, got %v", extra)
	default:
	}

	// History keeps everything the channel dropped.
	if recs := s.Records("/rosout"); len(recs) != 2 {
		t.Errorf("history len = %d, want 2", len(recs))
	}
}

func TestSubscribeWithSnapshotSplitsHistoryAndLive(t *testing.T) {
	s := NewStore(0)
	s.Append("/rosout", "rosgraph_msgs/Log", msg(1), msg(2))

	snapshot, sub := s.SubscribeWithSnapshot("/rosout", 4)
	defer sub.Close()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot = %d records, want the full history", len(snapshot))
	}
	select {
	case got := <-sub.C:
		t.Fatalf("pre-subscribe records must not be delivered live: %v", got)
	default:
	}

	s.Append("/rosout", "rosgraph_msgs/Log", msg(3))
	select {
	case got := <-sub.C:
		if len(got) != 1 || got[0].Timestamp != 3 {
			t.Errorf("delivered = %v, want only the post-subscribe record", got)
		}
	default:
		t.Fatal("post-subscribe record was not delivered")
	}
}

func TestSubscribeWithSnapshotUnknownTopic(t *testing.T) {
	s := NewStore(0)
	snapshot, sub := s.SubscribeWithSnapshot("/rosout", 4)
	defer sub.Close()
	if len(snapshot) != 0 {
		t.Errorf("snapshot = %v, want empty for an unseen topic", snapshot)
	}
	s.Append("/rosout", "rosgraph_msgs/Log", msg(1))
	select {
	case <-sub.C:
	default:
		t.Error("subscription taken before the topic existed must still deliver")
	}
}

func TestStoreUnsubscribeClosesChannel(t *testing.T) {
	s := NewStore(0)
	sub := s.Subscribe("/rosout", 1)
	sub.Close()
	if _, open := <-sub.C; open {
		t.Error("channel must be closed after Close")
	}
	// Second close is a no-op.
	sub.Close()
	s.Append("/rosout", "rosgraph_msgs/Log", msg(1))
}

func TestStoreRestoreDoesNotNotify(t *testing.T) {
	s := NewStore(0)
	sub := s.Subscribe("/rosout", 4)
	defer sub.Close()

	s.Restore("/rosout", "rosgraph_msgs/Log", []model.LogRecord{msg(1)})
	select {
	case <-sub.C:
		t.Fatal("Restore must not notify subscribers")
	default:
	}
	if recs := s.Records("/rosout"); len(recs) != 1 {
		t.Errorf("history len = %d, want 1", len(recs))
	}
}
