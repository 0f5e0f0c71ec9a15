package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"duckdns_agent/internal/models"
	"duckdns_agent/internal/service"
)

func TestUserIdMiddleware(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		parseErr error
		want     int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "no token", header: "Bearer", want: http.StatusUnauthorized},
		{name: "parse failure", header: "Bearer bad", parseErr: errors.New("expired"), want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", want: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: 7, parseErr: tc.parseErr}
			mon := &mockMonitoring{status: models.UpdaterStatus{State: "IDLE", StartEnabled: true}}
			s := &service.Service{Authorization: auth, Monitoring: mon}
			r := newTestRouter(s)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/updater/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && auth.lastParseToken != "good" {
				t.Fatalf("expected token forwarded to parser, got %q", auth.lastParseToken)
			}
		})
	}
}
