package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreGetOrCreate(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	sess, created := st.GetOrCreate("10.0.0.1:4000", now)
	if !created {
		t.Fatal("first lookup did not create a session")
	}
	if sess.Cwd != root {
		t.Errorf("new session starts at %q, want root %q", sess.Cwd, root)
	}
	if sess.Key != "10.0.0.1:4000" {
		t.Errorf("session key = %q", sess.Key)
	}

	again, created := st.GetOrCreate("10.0.0.1:4000", now.Add(time.Second))
	if created {
		t.Fatal("second lookup created a new session")
	}
	if again != sess {
		t.Error("second lookup returned a different session")
	}

	// A different port is a different client identity.
	other, created := st.GetOrCreate("10.0.0.1:4001", now)
	if !created || other == sess {
		t.Error("distinct port did not get its own session")
	}
	if st.Len() != 2 {
		t.Errorf("Len = %d, want 2", st.Len())
	}
}

func TestStoreSweep(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root, time.Minute)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	stale, _ := st.GetOrCreate("10.0.0.1:4000", base)
	fresh, _ := st.GetOrCreate("10.0.0.2:4000", base)
	st.Touch(fresh, base.Add(50*time.Second))

	evicted := st.Sweep(base.Add(time.Minute))
	if len(evicted) != 1 || evicted[0] != stale {
		t.Fatalf("Sweep evicted %v, want only the stale session", evicted)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d after sweep, want 1", st.Len())
	}

	// The evicted identity gets a brand new session at the root.
	stale.Cwd = filepath.Join(root, "somewhere")
	recreated, created := st.GetOrCreate("10.0.0.1:4000", base.Add(2*time.Minute))
	if !created {
		t.Fatal("evicted identity reused the old session")
	}
	if recreated == stale || recreated.ID == stale.ID {
		t.Error("recreated session shares identity with the evicted one")
	}
	if recreated.Cwd != root {
		t.Errorf("recreated session starts at %q, want root", recreated.Cwd)
	}
}

func TestSweepClosesTransferHandles(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root, time.Minute)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	path := filepath.Join(root, "partial.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, _ := st.GetOrCreate("10.0.0.1:4000", base)
	sess.Upload = &UploadState{File: f, Path: path, Expected: 100, Received: 8}

	evicted := st.Sweep(base.Add(2 * time.Minute))
	if len(evicted) != 1 {
		t.Fatalf("Sweep evicted %d sessions, want 1", len(evicted))
	}
	if evicted[0].Upload != nil {
		t.Error("upload state survived eviction")
	}
	// The handle was closed by the sweep; closing again must fail.
	if err := f.Close(); err == nil {
		t.Error("file handle still open after eviction")
	}
}

func TestSweepBeforeTimeoutKeepsSessions(t *testing.T) {
	st := NewStore(t.TempDir(), time.Minute)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	st.GetOrCreate("10.0.0.1:4000", base)
	if evicted := st.Sweep(base.Add(59 * time.Second)); len(evicted) != 0 {
		t.Errorf("Sweep evicted %d sessions before the timeout", len(evicted))
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestStoreSnapshot(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root, time.Minute)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	sess, _ := st.GetOrCreate("10.0.0.1:4000", base)
	sess.Download = &DownloadState{Name: "a.bin", Size: 10}

	infos := st.Snapshot()
	if len(infos) != 1 {
		t.Fatalf("Snapshot has %d entries, want 1", len(infos))
	}
	info := infos[0]
	if info.Peer != "10.0.0.1:4000" || info.Cwd != root {
		t.Errorf("snapshot = %+v", info)
	}
	if info.UploadActive || !info.DownloadActive {
		t.Errorf("transfer flags = upload:%v download:%v", info.UploadActive, info.DownloadActive)
	}
}
