package flows

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// fakeAPI is an httptest server that records every request in order
type fakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu    sync.Mutex
	calls []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux()}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) client(session *Session) *client.Client {
	return client.New(f.URL, client.WithTokenSource(session))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": "error", "message": message, "code": code})
}

func loggedInSession(t *testing.T, role models.Role) *Session {
	t.Helper()
	session, err := NewSession(NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, session.Login("test-token", models.User{
		ID:    uuid.New(),
		Name:  "Sita Sharma",
		Email: "sita@example.com",
		Phone: "9812345678",
		Role:  role,
	}))
	return session
}

func anonymousSession(t *testing.T) *Session {
	t.Helper()
	session, err := NewSession(NewMemoryStore())
	require.NoError(t, err)
	return session
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}
