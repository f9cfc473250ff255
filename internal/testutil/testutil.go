// Package testutil holds fixtures and helpers shared by the mTPC tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// SampleTracks is a digitized input in metres with three events: a
// six-column event with three hits and two nine-column events carrying
// the true hit position.
const SampleTracks = `Event 1
	0.922362	89.49	-156.71	-0.0605
	312.855	2.05888e-08	0	68	3	0.0100347
	285.625	2.7713e-08	20	68	3	0.0091457
Event 2
	1.1	45	10	0.01
	100	5	0.01	0.02	0.03	4	5	6	0.5
Event 3
	1.2	30	20	0.02
	120	7	0.05	0.06	0.1	10	100	1	0.2
`

// WriteTracks writes SampleTracks to dir/tracks.txt and returns its path.
func WriteTracks(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tracks.txt")
	if err := os.WriteFile(path, []byte(SampleTracks), 0o644); err != nil {
		t.Fatalf("write tracks: %v", err)
	}
	return path
}

// Get serves a GET of target on h.
func Get(t testing.TB, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// DecodeJSON unmarshals the recorded body into v.
func DecodeJSON(t testing.TB, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}
