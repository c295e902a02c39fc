package docmerge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lllllllleong/noticeflow/internal/models"
)

// fakeService mimics the token, asset, job and download endpoints.
type fakeService struct {
	srv        *httptest.Server
	polls      atomic.Int32
	uploaded   []byte
	job        jobRequest
	jobStatus  string
	assetsCode int
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{jobStatus: statusDone, assetsCode: http.StatusOK}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("client_id") != "id" || r.FormValue("client_secret") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"invalid_client","error_description":"bad credentials"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /assets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("X-API-Key") != "id" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if f.assetsCode != http.StatusOK {
			w.WriteHeader(f.assetsCode)
			io.WriteString(w, `{"error":{"code":"QUOTA","message":"quota exhausted"}}`)
			return
		}
		json.NewEncoder(w).Encode(assetResponse{UploadURI: f.srv.URL + "/upload/a1", AssetID: "a1"})
	})
	mux.HandleFunc("PUT /upload/a1", func(w http.ResponseWriter, r *http.Request) {
		f.uploaded, _ = io.ReadAll(r.Body)
	})
	mux.HandleFunc("POST /operation/documentgeneration", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.job)
		w.Header().Set("Location", f.srv.URL+"/status/j1")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /status/j1", func(w http.ResponseWriter, r *http.Request) {
		if f.polls.Add(1) == 1 {
			io.WriteString(w, `{"status":"in progress"}`)
			return
		}
		if f.jobStatus == statusFailed {
			io.WriteString(w, `{"status":"failed","error":{"code":"BAD_TEMPLATE","message":"unknown tag","status":400}}`)
			return
		}
		io.WriteString(w, `{"status":"done","asset":{"downloadUri":"`+f.srv.URL+`/download/j1"}}`)
	})
	mux.HandleFunc("GET /download/j1", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "%PDF-1.7 rendered")
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) client(creds Credentials) *Client {
	return NewClient(context.Background(), creds,
		WithBaseURL(f.srv.URL),
		WithHTTPClient(f.srv.Client()),
		WithPollInterval(time.Millisecond),
	)
}

func testRequest(t *testing.T) *models.GenerationRequest {
	t.Helper()
	template := filepath.Join(t.TempDir(), "Maintenance Notice_Template.docx")
	if err := os.WriteFile(template, []byte("docx-bytes"), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	return &models.GenerationRequest{
		TemplatePath: template,
		Data:         map[string]any{"UNIT_NUMBER": "4A"},
		Format:       models.FormatPDF,
		OutputPath:   filepath.Join(t.TempDir(), "out.pdf"),
	}
}

func TestGenerate(t *testing.T) {
	f := newFakeService(t)
	body, err := f.client(Credentials{ClientID: "id", ClientSecret: "secret"}).Generate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "%PDF-1.7 rendered" {
		t.Fatalf("unexpected document: %q", data)
	}
	if string(f.uploaded) != "docx-bytes" {
		t.Fatalf("template not uploaded: %q", f.uploaded)
	}
	if f.job.AssetID != "a1" || f.job.OutputFormat != "pdf" || f.job.JSONDataForMerge["UNIT_NUMBER"] != "4A" {
		t.Fatalf("unexpected job request: %+v", f.job)
	}
	if f.polls.Load() != 2 {
		t.Fatalf("expected 2 status polls, got %d", f.polls.Load())
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		setup    func(*fakeService)
		wantKind Kind
	}{
		{
			name:     "bad credentials",
			creds:    Credentials{ClientID: "id", ClientSecret: "wrong"},
			wantKind: KindAuth,
		},
		{
			name:     "quota exhausted",
			creds:    Credentials{ClientID: "id", ClientSecret: "secret"},
			setup:    func(f *fakeService) { f.assetsCode = http.StatusTooManyRequests },
			wantKind: KindUsage,
		},
		{
			name:     "service outage",
			creds:    Credentials{ClientID: "id", ClientSecret: "secret"},
			setup:    func(f *fakeService) { f.assetsCode = http.StatusBadGateway },
			wantKind: KindTransient,
		},
		{
			name:     "job failed",
			creds:    Credentials{ClientID: "id", ClientSecret: "secret"},
			setup:    func(f *fakeService) { f.jobStatus = statusFailed },
			wantKind: KindInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.client(tt.creds).Generate(context.Background(), testRequest(t))
			if !IsKind(err, tt.wantKind) {
				t.Fatalf("expected %s error, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestGenerateRejectsIncompleteRequest(t *testing.T) {
	f := newFakeService(t)
	req := testRequest(t)
	req.Data = nil

	_, err := f.client(Credentials{ClientID: "id", ClientSecret: "secret"}).Generate(context.Background(), req)
	if !errors.Is(err, models.ErrIncompleteRequest) {
		t.Fatalf("expected ErrIncompleteRequest, got %v", err)
	}
}

func TestWaitForJobHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"in progress"}`)
	}))
	defer srv.Close()

	c := &Client{api: srv.Client(), transfer: srv.Client(), pollInterval: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.waitForJob(ctx, srv.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
