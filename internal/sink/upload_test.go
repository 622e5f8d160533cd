package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
)

// mockStore records puts in memory and can be told to fail specific keys.
type mockStore struct {
	mu       sync.Mutex
	objects  map[string]string
	failKeys map[string]error
	puts     []string // keys in call order
}

func newMockStore() *mockStore {
	return &mockStore{
		objects:  make(map[string]string),
		failKeys: make(map[string]error),
	}
}

func (m *mockStore) Put(_ context.Context, key string, body io.Reader, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, key)
	if err, ok := m.failKeys[key]; ok {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = string(data)
	return nil
}

func (m *mockStore) Close() error { return nil }

// threeSegmentWriter builds a writer with three segments holding one
// record each, already drained.
func threeSegmentWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	w, dir := newTestWriter(t)
	for i := 0; i < 3; i++ {
		rec := Record{Name: fmt.Sprintf("op%d", i), Payload: "data"}
		if err := w.Append(rec); err != nil {
			t.Fatal(err)
		}
		if i < 2 {
			if _, err := w.Rotate(); err != nil {
				t.Fatal(err)
			}
		}
	}
	return w, dir
}

func TestUploader_FlushThenUploadAll(t *testing.T) {
	w, _ := threeSegmentWriter(t)
	st := newMockStore()
	u := NewUploader(w, st, "", "bench01", nil, nil)

	if err := u.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	report := u.UploadAll(context.Background())

	wantKeys := []string{"bench01-bench01-0.out", "bench01-bench01-1.out", "bench01-bench01-2.out"}
	if len(report.Succeeded) != len(wantKeys) {
		t.Fatalf("succeeded = %v, want %v", report.Succeeded, wantKeys)
	}
	for i, want := range wantKeys {
		if report.Succeeded[i] != want {
			t.Errorf("succeeded[%d] = %q, want %q", i, report.Succeeded[i], want)
		}
	}
	if len(report.Failed) != 0 {
		t.Errorf("failed = %v, want none", report.Failed)
	}

	// Uploads run in ascending sequence order, base file first.
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.objects["bench01-bench01-0.out"] != "op0;data\n" {
		t.Errorf("object 0 = %q, want op0 record", st.objects["bench01-bench01-0.out"])
	}
	if st.objects["bench01-bench01-2.out"] != "op2;data\n" {
		t.Errorf("object 2 = %q, want op2 record", st.objects["bench01-bench01-2.out"])
	}
}

func TestUploader_PartialFailureIsolation(t *testing.T) {
	w, dir := threeSegmentWriter(t)
	st := newMockStore()
	st.failKeys["bench01-bench01-1.out"] = errors.New("503 from store")
	u := NewUploader(w, st, "", "bench01", nil, nil)

	if err := u.Flush(); err != nil {
		t.Fatal(err)
	}
	report := u.UploadAll(context.Background())

	wantOK := []string{"bench01-bench01-0.out", "bench01-bench01-2.out"}
	if len(report.Succeeded) != 2 || report.Succeeded[0] != wantOK[0] || report.Succeeded[1] != wantOK[1] {
		t.Errorf("succeeded = %v, want %v", report.Succeeded, wantOK)
	}
	if len(report.Failed) != 1 {
		t.Fatalf("failed = %v, want exactly one", report.Failed)
	}
	if report.Failed[0].Path != filepath.Join(dir, "diagnostics.out-0") {
		t.Errorf("failed path = %q, want middle segment", report.Failed[0].Path)
	}
	if report.Failed[0].Err == nil {
		t.Error("failure must carry the store error")
	}

	// All three were attempted despite the middle failing.
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.puts) != 3 {
		t.Errorf("put attempts = %d, want 3", len(st.puts))
	}
}

func TestUploader_UploadIdempotent(t *testing.T) {
	w, _ := threeSegmentWriter(t)
	st := newMockStore()
	u := NewUploader(w, st, "", "bench01", nil, nil)

	if err := u.Flush(); err != nil {
		t.Fatal(err)
	}

	first := u.UploadAll(context.Background())
	second := u.UploadAll(context.Background())

	if len(first.Succeeded) != 3 || len(second.Succeeded) != 3 {
		t.Fatalf("expected both batches to fully succeed: %v / %v", first, second)
	}

	// Overwrite semantics: re-running leaves exactly one object per segment.
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.objects) != 3 {
		t.Errorf("store holds %d objects, want 3", len(st.objects))
	}
}

func TestUploader_PrefixedKeys(t *testing.T) {
	w, _ := newTestWriter(t)
	st := newMockStore()
	u := NewUploader(w, st, "run7", "bench01", nil, nil)

	if err := u.Flush(); err != nil {
		t.Fatal(err)
	}
	report := u.UploadAll(context.Background())

	if len(report.Succeeded) != 1 || report.Succeeded[0] != "run7/bench01-bench01-0.out" {
		t.Errorf("succeeded = %v, want the prefixed key", report.Succeeded)
	}
}

func TestUploader_FlushIdempotent(t *testing.T) {
	w, _ := newTestWriter(t)
	u := NewUploader(w, newMockStore(), "", "bench01", nil, nil)

	if err := u.Flush(); err != nil {
		t.Fatalf("first flush: %v", err)
	}
	if err := u.Flush(); err != nil {
		t.Errorf("second flush: %v", err)
	}
}
