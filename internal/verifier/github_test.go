package verifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neiii/stargate-better-auth/internal/core"
)

// go-github mounts enterprise APIs under /api/v3/.
const starPath = "/api/v3/user/starred/neiii/stargate"

func TestGitHubCheckerIsStarred(t *testing.T) {
	ref := core.RepositoryRef{Owner: "neiii", Repo: "stargate"}

	tests := []struct {
		name        string
		status      int
		body        string
		wantStarred bool
		wantErr     bool
	}{
		{
			name:        "starred",
			status:      http.StatusNoContent,
			wantStarred: true,
		},
		{
			name:        "not starred",
			status:      http.StatusNotFound,
			body:        `{"message": "Not Found"}`,
			wantStarred: false,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"message": "Bad credentials"}`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotAgent string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != starPath {
					t.Errorf("unexpected path %s", r.URL.Path)
					http.NotFound(w, r)
					return
				}
				gotAuth = r.Header.Get("Authorization")
				gotAgent = r.Header.Get("User-Agent")
				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			checker := NewGitHubChecker(srv.URL, "Stargate/test")
			starred, status, err := checker.IsStarred(context.Background(), "gho_testtoken", ref)

			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if starred != tt.wantStarred {
				t.Errorf("starred = %t, want %t", starred, tt.wantStarred)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if gotAuth != "Bearer gho_testtoken" {
				t.Errorf("Authorization = %q", gotAuth)
			}
			if !strings.HasPrefix(gotAgent, "Stargate/") {
				t.Errorf("User-Agent = %q", gotAgent)
			}
		})
	}
}

func TestGitHubCheckerTransportError(t *testing.T) {
	// point at a closed port
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	checker := NewGitHubChecker(srv.URL, "Stargate/test")
	_, status, err := checker.IsStarred(context.Background(), "gho_testtoken", core.RepositoryRef{Owner: "a", Repo: "b"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if status != 0 {
		t.Errorf("transport failures should report status 0, got %d", status)
	}
}
