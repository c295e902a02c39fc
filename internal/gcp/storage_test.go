package gcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

// fakeBucket records objects in memory. Writers fail with closeErrs in order
// before succeeding.
type fakeBucket struct {
	objects   map[string][]byte
	closeErrs []error
	writes    int
}

type fakeWriter struct {
	bytes.Buffer
	bucket *fakeBucket
	name   string
	absent bool
}

func (b *fakeBucket) NewWriter(_ context.Context, object string, onlyIfAbsent bool) io.WriteCloser {
	b.writes++
	return &fakeWriter{bucket: b, name: object, absent: onlyIfAbsent}
}

func (w *fakeWriter) Close() error {
	if len(w.bucket.closeErrs) > 0 {
		err := w.bucket.closeErrs[0]
		w.bucket.closeErrs = w.bucket.closeErrs[1:]
		return err
	}
	if _, exists := w.bucket.objects[w.name]; exists && w.absent {
		return &googleapi.Error{Code: http.StatusPreconditionFailed}
	}
	w.bucket.objects[w.name] = w.Bytes()
	return nil
}

func localFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notice.pdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

var fastRetry = Retry{Attempts: 3, Backoff: time.Millisecond, Timeout: time.Second}

func TestUploadFileRetries(t *testing.T) {
	b := &fakeBucket{objects: map[string][]byte{}, closeErrs: []error{errors.New("connection reset")}}
	if err := UploadFile(context.Background(), b, localFile(t, "pdf"), "run-1/a.pdf", fastRetry); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if b.writes != 2 || string(b.objects["run-1/a.pdf"]) != "pdf" {
		t.Fatalf("expected a successful second attempt, got %d writes, %v", b.writes, b.objects)
	}
}

func TestUploadFileGivesUp(t *testing.T) {
	boom := errors.New("unavailable")
	b := &fakeBucket{objects: map[string][]byte{}, closeErrs: []error{boom, boom, boom}}
	err := UploadFile(context.Background(), b, localFile(t, "pdf"), "run-1/a.pdf", fastRetry)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the last error to be wrapped, got %v", err)
	}
	if b.writes != 3 {
		t.Fatalf("expected 3 attempts, got %d", b.writes)
	}
}

func TestSaveToGCSAtomicallySkipsExisting(t *testing.T) {
	b := &fakeBucket{objects: map[string][]byte{"run-1/a.pdf": []byte("first")}}
	if err := SaveToGCSAtomically(context.Background(), b, "run-1/a.pdf", bytes.NewReader([]byte("second"))); err != nil {
		t.Fatalf("expected an existing object to be skipped, got %v", err)
	}
	if string(b.objects["run-1/a.pdf"]) != "first" {
		t.Fatal("existing object overwritten")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("NOTICE_TEST_SET", "value")
	if got := GetEnv("NOTICE_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("GetEnv() = %q", got)
	}
	if got := GetEnv("NOTICE_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv() = %q", got)
	}
}

func TestWorkflowParent(t *testing.T) {
	want := "projects/p/locations/us-central1/workflows/notice-handoff"
	if got := WorkflowParent("p", "us-central1", "notice-handoff"); got != want {
		t.Fatalf("WorkflowParent() = %q", got)
	}
}
