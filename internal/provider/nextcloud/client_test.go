package nextcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient returns a client pointed at a stub REST layer plus the
// request log the stub appends to.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]string) {
	t.Helper()
	var log []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log = append(log, r.Method+" "+r.URL.Path)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, "admin", "secret"), &log
}

func TestClientSendsBasicAuth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	if err := client.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}

	bad := New(client.baseURL, "admin", "wrong")
	if err := bad.Test(context.Background()); err == nil {
		t.Error("wrong credentials must surface as an error")
	}
}

func TestClientDecodesErrorBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request","message":"User does not exist"}`))
	})

	err := client.ScanUserFiles(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "User does not exist") {
		t.Errorf("error %q does not carry the provider message", err)
	}
}

func TestClientRoutes(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	calls := []struct {
		run  func() error
		want string
	}{
		{func() error { return client.ScanAllFiles(ctx) }, "PUT /files/scan"},
		{func() error { return client.ScanUserFiles(ctx, "alice") }, "PUT /files/scan/alice"},
		{func() error { return client.ScanDirectoryFiles(ctx, "rec-001") }, "PUT /files/scan/directory/rec-001"},
		{func() error { _, err := client.Users(ctx); return err }, "GET /files/users"},
		{func() error { return client.CreateUser(ctx, "bob") }, "POST /users/bob"},
		{func() error { return client.DisableUser(ctx, "bob") }, "PUT /users/bob/disable"},
		{func() error { return client.EnableUser(ctx, "bob") }, "PUT /users/bob/enable"},
		{func() error { _, err := client.UserPermissions(ctx, "rec-001"); return err }, "GET /files/userpermissions/rec-001"},
		{func() error {
			_, err := client.SetUserPermissions(ctx, "alice", "15", "rec-001")
			return err
		}, "POST /files/userpermissions/alice/15/rec-001"},
		{func() error {
			_, err := client.DeleteUserPermissions(ctx, "alice", "rec-001")
			return err
		}, "DELETE /files/userpermissions/alice/rec-001"},
	}

	for _, c := range calls {
		if err := c.run(); err != nil {
			t.Fatalf("%s: %v", c.want, err)
		}
	}
	for i, c := range calls {
		if (*log)[i] != c.want {
			t.Errorf("call %d: got %q, want %q", i, (*log)[i], c.want)
		}
	}
}
