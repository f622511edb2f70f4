package regression_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/filemgr/spacescan/internal/api"
	"github.com/filemgr/spacescan/internal/checksum"
	"github.com/filemgr/spacescan/internal/db"
	"github.com/filemgr/spacescan/internal/history"
	"github.com/filemgr/spacescan/internal/provider/nextcloud"
	"github.com/filemgr/spacescan/internal/provider/webdav"
	"github.com/filemgr/spacescan/internal/report"
	"github.com/filemgr/spacescan/internal/scan"
)

// testEnv runs the whole service in-process: an in-memory provider
// filesystem, a stub DAV endpoint listing it, a real SQLite history database
// and the full HTTP surface.
type testEnv struct {
	baseURL string
	client  *http.Client
	runner  *scan.Runner
	token   string
}

// listingXML is the DAV listing the stub returns for the fixture space. The
// paths and sizes match the files seeded on the in-memory filesystem.
const listingXML = `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns">
  <d:response>
    <d:href>/remote.php/dav/files/alice/rec-001/</d:href>
    <d:propstat>
      <d:prop>
        <oc:fileid>100</oc:fileid>
        <d:getlastmodified>Sun, 01 Mar 2026 12:00:00 GMT</d:getlastmodified>
        <d:resourcetype><d:collection/></d:resourcetype>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/remote.php/dav/files/alice/rec-001/a.txt</d:href>
    <d:propstat>
      <d:prop>
        <oc:fileid>101</oc:fileid>
        <d:getlastmodified>Sun, 01 Mar 2026 12:30:00 GMT</d:getlastmodified>
        <d:getcontentlength>11</d:getcontentlength>
        <d:resourcetype/>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/remote.php/dav/files/alice/rec-001/docs/</d:href>
    <d:propstat>
      <d:prop>
        <oc:fileid>102</oc:fileid>
        <d:getlastmodified>Sun, 01 Mar 2026 11:00:00 GMT</d:getlastmodified>
        <d:resourcetype><d:collection/></d:resourcetype>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/remote.php/dav/files/alice/rec-001/docs/b.txt</d:href>
    <d:propstat>
      <d:prop>
        <oc:fileid>103</oc:fileid>
        <d:getlastmodified>Sun, 01 Mar 2026 12:45:00 GMT</d:getlastmodified>
        <d:getcontentlength>13</d:getcontentlength>
        <d:resourcetype/>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

// newTestEnv assembles the service with jwtSecret. An empty secret disables
// authentication, matching local-development configuration.
func newTestEnv(t *testing.T, jwtSecret []byte) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	seed := map[string]string{
		"/rec-001/a.txt":      "hello world",
		"/rec-001/docs/b.txt": "other content",
	}
	for p, content := range seed {
		if err := afero.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			t.Fatalf("seed %q: %v", p, err)
		}
	}

	davSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PROPFIND" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/remote.php/dav/files/alice/rec-001" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(listingXML))
	}))
	t.Cleanup(davSrv.Close)

	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.RunMigrations(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	hist := history.New(d)

	store := report.NewStore(fs, "/.spacescan")
	engine := scan.NewEngine(store, checksum.New(fs))
	registry := scan.NewRegistry()
	runner := scan.NewRunner(engine, registry, hist)

	dav := webdav.New(davSrv.URL+"/remote.php/dav/files", "alice", "secret")
	nc := nextcloud.New(davSrv.URL, "alice", "secret")
	svc := scan.NewService(dav, engine, registry, runner, store, hist)

	srv := api.New(":0", svc, registry, hist, dav, nc, nil, jwtSecret, "test")
	apiSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(apiSrv.Close)

	return &testEnv{
		baseURL: apiSrv.URL,
		client:  &http.Client{Timeout: 10 * time.Second},
		runner:  runner,
	}
}

// do issues a request to path, attaching the env's bearer token when set.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.baseURL+path, body)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	return e.do(t, http.MethodGet, path, nil)
}

func (e *testEnv) put(t *testing.T, path string) *http.Response {
	return e.do(t, http.MethodPut, path, nil)
}

func (e *testEnv) del(t *testing.T, path string) *http.Response {
	return e.do(t, http.MethodDelete, path, nil)
}

// requireStatus fails the test if the response status code != want.
func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d\nbody: %s", want, resp.StatusCode, body)
	}
}

// decodeJSON decodes the response body into v, failing the test on error.
func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
}

// requireContentType fails if the Content-Type header doesn't match want.
func requireContentType(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		t.Fatalf("missing Content-Type header, expected %q", want)
	}
	if len(ct) < len(want) || ct[:len(want)] != want {
		t.Fatalf("Content-Type: got %q, want prefix %q", ct, want)
	}
}

// scanStatusBody is the GET /api/scans/{id} response shape.
type scanStatusBody struct {
	ScanID         string `json:"scan_id"`
	SpaceID        string `json:"space_id"`
	Status         string `json:"status"`
	StartedAt      string `json:"started_at"`
	ReportLocation string `json:"report_location"`
	Error          string `json:"error"`
	Report         *struct {
		SpaceID    string `json:"space_id"`
		SourcePath string `json:"source_path"`
		IsComplete bool   `json:"is_complete"`
		Contents   []struct {
			Path             string  `json:"path"`
			ResourceType     string  `json:"resource_type"`
			Checksum         string  `json:"checksum"`
			LastChecksumDate *string `json:"last_checksum_date"`
		} `json:"contents"`
	} `json:"report"`
}

func fmtScanPath(scanID string) string {
	return fmt.Sprintf("/api/scans/%s", scanID)
}
