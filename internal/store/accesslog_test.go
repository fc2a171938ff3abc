// ABOUTME: Tests for the persisted access log
// ABOUTME: Append then read back newest first with a limit

package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestAccessLogAppendAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		err := s.AppendAccess(ctx, AccessEntry{
			ID:          fmt.Sprintf("evt-%d", i),
			PackageName: "com.example.app",
			UID:         10042,
			DataTag:     "deviceID",
			Mode:        "random",
			Output:      "123456789012345",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("appending %d: %v", i, err)
		}
	}

	entries, err := s.RecentAccess(ctx, 3)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "evt-4" {
		t.Errorf("newest first violated: %s", entries[0].ID)
	}
	if entries[0].DataTag != "deviceID" || entries[0].Mode != "random" {
		t.Errorf("fields not preserved: %+v", entries[0])
	}
}

func TestRecentAccessDefaultLimit(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.RecentAccess(context.Background(), 0)
	if err != nil {
		t.Fatalf("reading empty log: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
