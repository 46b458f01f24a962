package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestInstagramService(base string) *InstagramService {
	return &InstagramService{
		client:  &http.Client{Timeout: 2 * time.Second},
		apiBase: base,
	}
}

func TestFetchFeedParsesMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/me/media") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("access_token"); got != "tok-123" {
			t.Errorf("expected token in query, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("expected limit=5, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"1","caption":"Sports day","media_type":"IMAGE","media_url":"https://cdn/1.jpg","permalink":"https://ig/p/1","timestamp":"2026-03-01T09:00:00+0000"},
			{"id":"2","media_type":"VIDEO","media_url":"https://cdn/2.mp4","permalink":"https://ig/p/2","timestamp":"2026-03-02T09:00:00+0000"}
		]}`))
	}))
	defer srv.Close()

	s := newTestInstagramService(srv.URL)
	posts, err := s.fetchFeed("tok-123", 5)
	if err != nil {
		t.Fatalf("fetchFeed failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "1" || posts[0].Caption != "Sports day" {
		t.Fatalf("unexpected first post: %+v", posts[0])
	}
	if posts[1].MediaType != "VIDEO" {
		t.Fatalf("expected VIDEO media type, got %q", posts[1].MediaType)
	}
}

func TestFetchFeedSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	s := newTestInstagramService(srv.URL)
	_, err := s.fetchFeed("expired", 12)
	if err == nil {
		t.Fatal("expected error for rejected token")
	}
	if !strings.Contains(err.Error(), "190") || !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Fatalf("error should carry the Instagram code and message, got %v", err)
	}
}

func TestFetchFeedRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	s := newTestInstagramService(srv.URL)
	if _, err := s.fetchFeed("tok", 12); err == nil {
		t.Fatal("expected parse error for HTML body")
	}
}

func TestFetchFeedEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	s := newTestInstagramService(srv.URL)
	posts, err := s.fetchFeed("tok", 12)
	if err != nil {
		t.Fatalf("fetchFeed failed: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty feed, got %d posts", len(posts))
	}
}
