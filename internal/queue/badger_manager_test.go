package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/models"
)

func newTestManager(t *testing.T, visibility time.Duration, maxReceive int) *BadgerManager {
	t.Helper()

	opts := badgerdb.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	mgr, err := NewBadgerManager(db, visibility, maxReceive, arbor.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	return mgr
}

func scanMessage(t *testing.T, jobID string) models.TaskMessage {
	t.Helper()
	msg, err := models.NewScanTaskMessage(models.ScanTask{
		JobID:     jobID,
		KeywordID: "kw-1",
		Engine:    "openai",
	})
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestEnqueueReceiveDelete(t *testing.T) {
	mgr := newTestManager(t, time.Minute, 3)
	ctx := context.Background()

	if err := mgr.Enqueue(ctx, ScanQueue, scanMessage(t, "scan-1")); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	msg, err := mgr.Receive(ctx, ScanQueue)
	if err != nil {
		t.Fatalf("Failed to receive: %v", err)
	}
	if msg.ReceiveCount != 1 {
		t.Errorf("Expected receive count 1, got %d", msg.ReceiveCount)
	}

	task, err := msg.Task.DecodeScanTask()
	if err != nil {
		t.Fatalf("Failed to decode task: %v", err)
	}
	if task.JobID != "scan-1" {
		t.Errorf("Expected scan-1, got %s", task.JobID)
	}

	// Claimed message is invisible
	if _, err := mgr.Receive(ctx, ScanQueue); err != models.ErrNoMessage {
		t.Errorf("Expected ErrNoMessage while claimed, got %v", err)
	}

	if err := mgr.Delete(ctx, ScanQueue, msg.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	depth, err := mgr.Depth(ctx, ScanQueue)
	if err != nil {
		t.Fatal(err)
	}
	if depth != 0 {
		t.Errorf("Expected empty queue, got depth %d", depth)
	}
}

func TestQueuesAreIsolated(t *testing.T) {
	mgr := newTestManager(t, time.Minute, 3)
	ctx := context.Background()

	if err := mgr.Enqueue(ctx, ScanQueue, scanMessage(t, "scan-1")); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.Receive(ctx, EvaluateQueue); err != models.ErrNoMessage {
		t.Errorf("Expected ErrNoMessage on the other queue, got %v", err)
	}
	if _, err := mgr.Receive(ctx, ScanQueue); err != nil {
		t.Errorf("Expected message on scan queue, got %v", err)
	}
}

func TestEnqueueWithDelayHidesMessage(t *testing.T) {
	mgr := newTestManager(t, time.Minute, 3)
	ctx := context.Background()

	if err := mgr.EnqueueWithDelay(ctx, ScanQueue, scanMessage(t, "scan-1"), 80*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.Receive(ctx, ScanQueue); err != models.ErrNoMessage {
		t.Errorf("Expected delayed message to be invisible, got %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if _, err := mgr.Receive(ctx, ScanQueue); err != nil {
		t.Errorf("Expected delayed message to be visible now, got %v", err)
	}
}

func TestVisibilityTimeoutRedelivers(t *testing.T) {
	mgr := newTestManager(t, 80*time.Millisecond, 3)
	ctx := context.Background()

	if err := mgr.Enqueue(ctx, ScanQueue, scanMessage(t, "scan-1")); err != nil {
		t.Fatal(err)
	}

	first, err := mgr.Receive(ctx, ScanQueue)
	if err != nil {
		t.Fatal(err)
	}

	// Simulated crash: no Delete, no Release
	time.Sleep(120 * time.Millisecond)

	second, err := mgr.Receive(ctx, ScanQueue)
	if err != nil {
		t.Fatalf("Expected redelivery after visibility timeout, got %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected the same message, got %s vs %s", second.ID, first.ID)
	}
	if second.ReceiveCount != 2 {
		t.Errorf("Expected receive count 2, got %d", second.ReceiveCount)
	}
}

func TestReleaseDelaysRedelivery(t *testing.T) {
	mgr := newTestManager(t, time.Minute, 3)
	ctx := context.Background()

	if err := mgr.Enqueue(ctx, ScanQueue, scanMessage(t, "scan-1")); err != nil {
		t.Fatal(err)
	}
	msg, err := mgr.Receive(ctx, ScanQueue)
	if err != nil {
		t.Fatal(err)
	}

	if err := mgr.Release(ctx, ScanQueue, msg.ID, 80*time.Millisecond); err != nil {
		t.Fatalf("Failed to release: %v", err)
	}

	if _, err := mgr.Receive(ctx, ScanQueue); err != models.ErrNoMessage {
		t.Errorf("Expected released message to stay hidden, got %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	redelivered, err := mgr.Receive(ctx, ScanQueue)
	if err != nil {
		t.Fatalf("Expected redelivery after release delay, got %v", err)
	}
	if redelivered.ReceiveCount != 2 {
		t.Errorf("Expected receive count 2, got %d", redelivered.ReceiveCount)
	}
}

func TestMaxReceiveDeadLetters(t *testing.T) {
	mgr := newTestManager(t, 10*time.Millisecond, 2)
	ctx := context.Background()

	if err := mgr.Enqueue(ctx, ScanQueue, scanMessage(t, "scan-poison")); err != nil {
		t.Fatal(err)
	}

	// Burn through the allowed receives without acknowledging
	for i := 0; i < 2; i++ {
		if _, err := mgr.Receive(ctx, ScanQueue); err != nil {
			t.Fatalf("Receive %d failed: %v", i+1, err)
		}
		time.Sleep(30 * time.Millisecond)
	}

	// Third attempt dead-letters instead of claiming
	if _, err := mgr.Receive(ctx, ScanQueue); err != models.ErrNoMessage {
		t.Errorf("Expected poison message to be dead-lettered, got %v", err)
	}

	depth, err := mgr.Depth(ctx, ScanQueue)
	if err != nil {
		t.Fatal(err)
	}
	if depth != 0 {
		t.Errorf("Expected dead-lettered message out of rotation, depth %d", depth)
	}
}

func TestOrderingFollowsVisibility(t *testing.T) {
	mgr := newTestManager(t, time.Minute, 3)
	ctx := context.Background()

	// Enqueued second but visible first
	if err := mgr.EnqueueWithDelay(ctx, ScanQueue, scanMessage(t, "scan-later"), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Enqueue(ctx, ScanQueue, scanMessage(t, "scan-now")); err != nil {
		t.Fatal(err)
	}

	msg, err := mgr.Receive(ctx, ScanQueue)
	if err != nil {
		t.Fatal(err)
	}
	task, err := msg.Task.DecodeScanTask()
	if err != nil {
		t.Fatal(err)
	}
	if task.JobID != "scan-now" {
		t.Errorf("Expected the immediately visible message first, got %s", task.JobID)
	}
}

func TestTaskMessageRoundTrip(t *testing.T) {
	msg, err := models.NewEvaluateTaskMessage(models.EvaluateTask{ResultID: "res-1", ProjectID: "prj-1"})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != models.TaskTypeEvaluate {
		t.Errorf("Unexpected type: %s", msg.Type)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.TaskMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	task, err := decoded.DecodeEvaluateTask()
	if err != nil {
		t.Fatal(err)
	}
	if task.ResultID != "res-1" {
		t.Errorf("Unexpected result ID: %s", task.ResultID)
	}
}
