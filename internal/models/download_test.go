package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func TestDownloadVerifiesChecksum(t *testing.T) {
	payload := []byte("ggml model bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "ggml-test.bin")
	err := Download(context.Background(), DownloadOptions{
		URL:            srv.URL,
		Destination:    dest,
		ExpectedSHA256: sum(payload),
		NoProgress:     true,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("content = %q, want %q", got, payload)
	}
	if _, err := os.Stat(dest + ".part"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf(".part file left behind: %v", err)
	}
}

func TestDownloadChecksumMismatchRetriesAndFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("corrupted"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ggml-test.bin")
	err := Download(context.Background(), DownloadOptions{
		URL:            srv.URL,
		Destination:    dest,
		ExpectedSHA256: sum([]byte("expected")),
		Retries:        3,
		NoProgress:     true,
		backoff:        time.Millisecond,
	})
	if err == nil {
		t.Fatal("Download() expected checksum error")
	}
	if hits.Load() != 3 {
		t.Errorf("attempts = %d, want 3", hits.Load())
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Error("destination should not exist after failed download")
	}
}

func TestDownloadRecoversAfterServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "m.bin")
	err := Download(context.Background(), DownloadOptions{
		URL:         srv.URL,
		Destination: dest,
		NoProgress:  true,
		backoff:     time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("attempts = %d, want 2", hits.Load())
	}
}

func TestDownloadRequiresURLAndDestination(t *testing.T) {
	if err := Download(context.Background(), DownloadOptions{Destination: "x"}); err == nil {
		t.Error("expected error for empty URL")
	}
	if err := Download(context.Background(), DownloadOptions{URL: "http://x"}); err == nil {
		t.Error("expected error for empty destination")
	}
}

func TestVerifyFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := VerifyFileChecksum(path, sum([]byte("abc"))); err != nil {
		t.Errorf("matching checksum: %v", err)
	}
	if err := VerifyFileChecksum(path, sum([]byte("abd"))); err == nil {
		t.Error("expected mismatch error")
	}
	if err := VerifyFileChecksum(path, ""); err != nil {
		t.Errorf("empty expectation: %v", err)
	}
}

func TestEnsureWithoutAutoDownload(t *testing.T) {
	_, err := Ensure(context.Background(), "tiny", t.TempDir(), false, nil)
	if err == nil {
		t.Fatal("Ensure() expected error when model is missing and auto download is off")
	}
}

func TestEnsureExistingModel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-tiny.bin"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Ensure(context.Background(), "tiny", dir, false, nil)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if res.Path != filepath.Join(dir, "ggml-tiny.bin") {
		t.Errorf("Path = %q", res.Path)
	}
}
