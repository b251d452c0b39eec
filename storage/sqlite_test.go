package storage

import (
	"context"
	"testing"
	"time"
)

func TestIndexRecordAndRecent(t *testing.T) {
	index, err := OpenIndexInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	ctx := context.Background()

	older := NewMetadata("old", "coder", "Old Session", "first")
	older.UpdatedAt = time.Now().Add(-time.Hour).UTC()
	newer := NewMetadata("new", "coder", "New Session", "second")

	if err := index.Record(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := index.Record(ctx, newer); err != nil {
		t.Fatal(err)
	}

	entries, err := index.Recent(ctx, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SessionID != "new" {
		t.Errorf("most recent first: got %s", entries[0].SessionID)
	}
}

func TestIndexTopLevelFilter(t *testing.T) {
	index, err := OpenIndexInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	ctx := context.Background()
	parent := NewMetadata("parent", "main", "Parent", "")
	child := NewSubagentMetadata("child", "worker", "Child", "", "parent", "toolu_1")

	if err := index.Record(ctx, parent); err != nil {
		t.Fatal(err)
	}
	if err := index.Record(ctx, child); err != nil {
		t.Fatal(err)
	}

	topLevel, err := index.Recent(ctx, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(topLevel) != 1 || topLevel[0].SessionID != "parent" {
		t.Errorf("top level filter: %+v", topLevel)
	}
}

func TestIndexSearch(t *testing.T) {
	index, err := OpenIndexInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	ctx := context.Background()
	metadata := NewMetadata("s1", "coder", "Console Agent", "")
	metadata.ConversationName = "Fixing the flaky deploy"
	if err := index.Record(ctx, metadata); err != nil {
		t.Fatal(err)
	}

	hits, err := index.Search(ctx, "flaky", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	misses, err := index.Search(ctx, "unrelated", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(misses) != 0 {
		t.Errorf("expected no hits, got %d", len(misses))
	}
}

func TestIndexRemoveAndUpsert(t *testing.T) {
	index, err := OpenIndexInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	ctx := context.Background()
	metadata := NewMetadata("s1", "coder", "Name", "")
	if err := index.Record(ctx, metadata); err != nil {
		t.Fatal(err)
	}

	// Upsert refreshes the row rather than duplicating it.
	metadata.ConversationName = "Renamed"
	if err := index.Record(ctx, metadata); err != nil {
		t.Fatal(err)
	}
	entries, err := index.Recent(ctx, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ConversationName != "Renamed" {
		t.Errorf("upsert: %+v", entries)
	}

	if err := index.Remove(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	entries, err = index.Recent(ctx, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty index after remove, got %d", len(entries))
	}
}

func TestIndexRebuild(t *testing.T) {
	store := WithDir(t.TempDir())
	if _, err := NewSession("a", "coder", "A", "", store); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSession("b", "coder", "B", "", store); err != nil {
		t.Fatal(err)
	}

	index, err := OpenIndexInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	if err := index.Rebuild(context.Background(), store); err != nil {
		t.Fatal(err)
	}
	entries, err := index.Recent(context.Background(), 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("rebuild: expected 2 entries, got %d", len(entries))
	}
}
