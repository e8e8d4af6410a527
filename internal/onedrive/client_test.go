package onedrive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListFollowsNextLink(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Error("Expected Authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "":
			if r.URL.Path != "/v1.0/me/drive/root/children" || r.URL.Query().Get("$expand") != "children" {
				t.Errorf("unexpected first page request %s", r.URL.String())
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]interface{}{
					{"id": "1", "name": "Docs"},
					{"id": "2", "name": "invoice.pdf", "file": map[string]string{"mimeType": "application/pdf"},
						"parentReference": map[string]string{"path": "/drive/root:"}},
				},
				"@odata.nextLink": server.URL + "/v1.0/me/drive/root/children?page=2",
			})
		case "2":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]interface{}{
					{"id": "3", "name": "photo.jpg", "file": map[string]string{"mimeType": "image/jpeg"}},
				},
			})
		default:
			t.Errorf("unexpected page %s", r.URL.RawQuery)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL+"/v1.0", "/OrganizadorIA", server.Client())

	first, err := c.List(context.Background(), "tok", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(first.Items))
	}
	if !first.Items[0].IsFolder() {
		t.Error("Expected entry without file facet to be a folder")
	}
	if first.Items[1].IsFolder() || first.Items[1].MimeType != "application/pdf" {
		t.Errorf("unexpected file entry %+v", first.Items[1])
	}
	if first.Items[1].ParentPath != "/drive/root:" {
		t.Errorf("ParentPath = %q", first.Items[1].ParentPath)
	}
	if first.NextCursor == "" {
		t.Fatal("Expected a continuation cursor")
	}

	second, err := c.List(context.Background(), "tok", first.NextCursor)
	if err != nil {
		t.Fatalf("List(cursor) error = %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].Name != "photo.jpg" {
		t.Errorf("unexpected second page %+v", second.Items)
	}
	if second.NextCursor != "" {
		t.Errorf("Expected exhausted listing, got cursor %q", second.NextCursor)
	}
}

func TestListErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		cursor  func(url string) string
		cause   error
	}{
		{
			name: "non success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "cursor does not advance",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"value":           []interface{}{},
					"@odata.nextLink": "http://" + r.Host + r.URL.String(),
				})
			},
			cursor: func(url string) string { return url + "/me/drive/root/children?page=7" },
			cause:  ErrCursorLoop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			cursor := ""
			if tt.cursor != nil {
				cursor = tt.cursor(server.URL)
			}
			c := NewClient(server.URL, "/OrganizadorIA", server.Client())
			_, err := c.List(context.Background(), "tok", cursor)
			if !errors.Is(err, ErrList) {
				t.Fatalf("Expected ErrList, got %v", err)
			}
			if errors.Is(err, ErrFetch) || errors.Is(err, ErrUpload) {
				t.Errorf("List error matched another kind: %v", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("Expected cause %v, got %v", tt.cause, err)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/drive/items/abc/content":
			w.Write([]byte("%PDF-1.7 body"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "/OrganizadorIA", server.Client())

	data, err := c.Fetch(context.Background(), "tok", "abc")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "%PDF-1.7 body" {
		t.Errorf("Fetch() = %q", data)
	}

	_, err = c.Fetch(context.Background(), "tok", "missing")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("Expected ErrFetch, got %v", err)
	}
	var driveErr *DriveError
	if !errors.As(err, &driveErr) || driveErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected DriveError with status 404, got %#v", err)
	}
}

func TestUploadOverwritesLedgerPath(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		if r.URL.Path != "/me/drive/root:/OrganizadorIA/analises_ia.csv:/content" {
			t.Errorf("unexpected upload path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q", ct)
		}
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"x"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "OrganizadorIA/", server.Client())
	if err := c.Upload(context.Background(), "tok", "analises_ia.csv", "text/csv", []byte("a,b\n")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotBody != "a,b\n" {
		t.Errorf("uploaded body = %q", gotBody)
	}
	if loc := c.Location("analises_ia.csv"); loc != "/OrganizadorIA/analises_ia.csv" {
		t.Errorf("Location() = %q", loc)
	}
}

func TestUploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	c := NewClient(server.URL, "/OrganizadorIA", server.Client())
	err := c.Upload(context.Background(), "tok", "analises_ia.csv", "text/csv", []byte("x"))
	if !errors.Is(err, ErrUpload) {
		t.Errorf("Expected ErrUpload, got %v", err)
	}
}
