// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, "sess1", "user", "show 1abc", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, "sess1", "assistant", "fetch 1abc",
		[]string{"fetch 1abc", "zoom"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := store.Recent(ctx, "sess1", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Role != "user" || entries[1].Role != "assistant" {
		t.Errorf("entries out of order: %v", entries)
	}
	if len(entries[1].Commands) != 2 || entries[1].Commands[0] != "fetch 1abc" {
		t.Errorf("commands = %v", entries[1].Commands)
	}
}

func TestStore_RecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Append(ctx, "sess1", "user", "message", nil); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.Recent(ctx, "sess1", 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
	// Chronological: IDs must ascend
	for i := 1; i < len(entries); i++ {
		if entries[i].ID <= entries[i-1].ID {
			t.Errorf("entries not chronological: %v", entries)
		}
	}
}

func TestStore_SessionsIsolated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Append(ctx, "a", "user", "one", nil)
	store.Append(ctx, "b", "user", "two", nil)
	store.Append(ctx, "b", "assistant", "three", nil)

	entries, err := store.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "one" {
		t.Errorf("session a entries = %v", entries)
	}

	count, err := store.MessageCount(ctx, "b")
	if err != nil {
		t.Fatalf("MessageCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("session b count = %d, want 2", count)
	}
}

func TestStore_ClearSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Append(ctx, "sess1", "user", "hello", nil)
	store.Append(ctx, "keep", "user", "other", nil)

	if err := store.ClearSession(ctx, "sess1"); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	count, _ := store.MessageCount(ctx, "sess1")
	if count != 0 {
		t.Errorf("cleared session still has %d messages", count)
	}
	count, _ = store.MessageCount(ctx, "keep")
	if count != 1 {
		t.Errorf("other session lost messages, count = %d", count)
	}

	// Clearing an unknown session is a no-op
	if err := store.ClearSession(ctx, "missing"); err != nil {
		t.Errorf("ClearSession(missing) = %v, want nil", err)
	}
}

func TestStore_SessionListing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Append(ctx, "a", "user", "x", nil)
	store.Append(ctx, "b", "user", "y", nil)
	store.Append(ctx, "b", "user", "z", nil)

	infos, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions, want 2", len(infos))
	}

	byID := map[string]SessionInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	if byID["a"].MessageCount != 1 || byID["b"].MessageCount != 2 {
		t.Errorf("message counts wrong: %+v", infos)
	}
}

func TestStore_PurgeStale(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, "old", "user", "old request", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, "fresh", "user", "fresh request", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Age the first session past the cutoff.
	aged := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := store.db.Exec(
		"UPDATE sessions SET updated_at = ? WHERE id = 'old'", aged); err != nil {
		t.Fatalf("backdating session: %v", err)
	}

	n, err := store.PurgeStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeStale failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d sessions, want 1", n)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "fresh" {
		t.Errorf("remaining sessions = %v, want only fresh", sessions)
	}

	// Cascade removed the stale session's messages too.
	count, err := store.MessageCount(ctx, "old")
	if err != nil {
		t.Fatalf("MessageCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("stale session still has %d messages", count)
	}
}

func TestStore_PurgeStaleNothingToDo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, "fresh", "user", "hello", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	n, err := store.PurgeStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeStale failed: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d sessions, want 0", n)
	}
}

func TestStore_ClosedErrors(t *testing.T) {
	store := openTestStore(t)
	store.Close()

	ctx := context.Background()
	if err := store.Append(ctx, "s", "user", "x", nil); err != ErrClosed {
		t.Errorf("Append after close = %v, want ErrClosed", err)
	}
	if _, err := store.Recent(ctx, "s", 5); err != ErrClosed {
		t.Errorf("Recent after close = %v, want ErrClosed", err)
	}
	if _, err := store.PurgeStale(ctx, time.Hour); err != ErrClosed {
		t.Errorf("PurgeStale after close = %v, want ErrClosed", err)
	}
}
