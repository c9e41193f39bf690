package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mls-go/internal/mls"
	"mls-go/internal/testutil"
)

func testHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer token-123", "Cookie": "session=abc"}
}

func TestHTTPRemote_Upload(t *testing.T) {
	t.Run("posts multipart body and returns the assigned id", func(t *testing.T) {
		var gotMethod, gotAuth, gotFilename, gotContent string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotAuth = r.Header.Get("Authorization")

			f, fh, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile(file) error = %v", err)
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			defer f.Close()
			gotFilename = fh.Filename
			data, _ := io.ReadAll(f)
			gotContent = string(data)

			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"id":"track-42"}`)
		}))
		defer srv.Close()

		src := testutil.WriteFile(t, t.TempDir(), "d/e.mp3", []byte("music"))
		r := NewHTTPRemote("svc", srv.URL, testHeaders(), 0)

		id, err := r.Upload(context.Background(), mls.MediaFile{Path: src, RelPath: "d/e.mp3", Size: 5})
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}

		if id != "track-42" {
			t.Errorf("id = %q, want %q", id, "track-42")
		}
		if gotMethod != http.MethodPost {
			t.Errorf("method = %q, want POST", gotMethod)
		}
		if gotAuth != "Bearer token-123" {
			t.Errorf("Authorization = %q, want the configured header", gotAuth)
		}
		if gotFilename != "d/e.mp3" {
			t.Errorf("filename = %q, want %q", gotFilename, "d/e.mp3")
		}
		if gotContent != "music" {
			t.Errorf("uploaded content = %q, want %q", gotContent, "music")
		}
	})

	t.Run("non-2xx response fails with status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}))
		defer srv.Close()

		src := testutil.WriteFile(t, t.TempDir(), "a.mp3", []byte("x"))
		r := NewHTTPRemote("svc", srv.URL, testHeaders(), 0)

		_, err := r.Upload(context.Background(), mls.MediaFile{Path: src, RelPath: "a.mp3", Size: 1})
		if err == nil {
			t.Fatal("Upload() error = nil, want failure")
		}
		for _, want := range []string{"403", "quota exceeded"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error = %v, want it to contain %q", err, want)
			}
		}
	})

	t.Run("2xx without an id fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{}`)
		}))
		defer srv.Close()

		src := testutil.WriteFile(t, t.TempDir(), "a.mp3", []byte("x"))
		r := NewHTTPRemote("svc", srv.URL, testHeaders(), 0)

		_, err := r.Upload(context.Background(), mls.MediaFile{Path: src, RelPath: "a.mp3", Size: 1})
		if err == nil {
			t.Fatal("Upload() error = nil, want failure for missing id")
		}
		if !strings.Contains(err.Error(), "no id") {
			t.Errorf("error = %v, want it to mention the missing id", err)
		}
	})

	t.Run("2xx with a non-JSON body fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>ok</html>")
		}))
		defer srv.Close()

		src := testutil.WriteFile(t, t.TempDir(), "a.mp3", []byte("x"))
		r := NewHTTPRemote("svc", srv.URL, testHeaders(), 0)

		if _, err := r.Upload(context.Background(), mls.MediaFile{Path: src, RelPath: "a.mp3", Size: 1}); err == nil {
			t.Fatal("Upload() error = nil, want decode failure")
		}
	})

	t.Run("unreachable service fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // immediately, so the port refuses connections

		src := testutil.WriteFile(t, t.TempDir(), "a.mp3", []byte("x"))
		r := NewHTTPRemote("svc", srv.URL, testHeaders(), 0)

		if _, err := r.Upload(context.Background(), mls.MediaFile{Path: src, RelPath: "a.mp3", Size: 1}); err == nil {
			t.Fatal("Upload() error = nil, want transport failure")
		}
	})
}

func TestHTTPRemote_ValidateSetup(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		headers  map[string]string
		wantErr  bool
	}{
		{
			name:     "https endpoint with headers",
			endpoint: "https://music.example.com/upload",
			headers:  testHeaders(),
			wantErr:  false,
		},
		{
			name:     "http endpoint with headers",
			endpoint: "http://localhost:8080/upload",
			headers:  testHeaders(),
			wantErr:  false,
		},
		{
			name:     "unsupported scheme",
			endpoint: "ftp://music.example.com/upload",
			headers:  testHeaders(),
			wantErr:  true,
		},
		{
			name:     "no headers loaded",
			endpoint: "https://music.example.com/upload",
			headers:  nil,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewHTTPRemote("svc", tt.endpoint, tt.headers, 0)
			err := r.ValidateSetup(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSetup() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "(empty body)"},
		{"whitespace only", "  \n ", "(empty body)"},
		{"short body", "short", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet([]byte(tt.body)); got != tt.want {
				t.Errorf("snippet(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}

	t.Run("long body is truncated", func(t *testing.T) {
		long := strings.Repeat("x", 500)
		got := snippet([]byte(long))
		if len(got) != 203 {
			t.Errorf("len(snippet) = %d, want 203", len(got))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("snippet = %q, want ... suffix", got)
		}
	})
}
