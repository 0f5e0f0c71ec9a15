package duckdns

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend_BuildsUpdateURLAndReturnsBodyVerbatim(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Send("myhome", "a7c3d9")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp != "OK" {
		t.Fatalf("expected body %q, got %q", "OK", resp)
	}
	if gotPath != "/update" {
		t.Fatalf("expected path /update, got %q", gotPath)
	}
	if want := "domains=myhome&token=a7c3d9&ip="; gotQuery != want {
		t.Fatalf("expected query %q, got %q", want, gotQuery)
	}
}

func TestSend_DoesNotEscapeInterpolatedValues(t *testing.T) {
	var extra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extra = r.URL.Query().Get("extra")
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	// A token containing query metacharacters leaks straight into the URL.
	if _, err := c.Send("myhome", "abc&extra=1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if extra != "1" {
		t.Fatalf("expected unescaped token to introduce extra=1, got %q", extra)
	}
}

func TestSend_StatusCodeIsNotInterpreted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("KO"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Send("myhome", "a7c3d9")
	if err != nil {
		t.Fatalf("expected no error on non-2xx, got %v", err)
	}
	if resp != "KO" {
		t.Fatalf("expected body %q, got %q", "KO", resp)
	}
}

func TestSend_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL)
	if _, err := c.Send("myhome", "a7c3d9"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestNew_DefaultsAndTrimsBaseURL(t *testing.T) {
	if c := New(""); c.baseURL != DefaultBaseURL {
		t.Fatalf("expected default base URL, got %q", c.baseURL)
	}
	if c := New("http://example.test/"); c.baseURL != "http://example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.baseURL)
	}
}
