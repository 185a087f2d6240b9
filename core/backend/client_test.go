package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

func newTestClient(t *testing.T, status int, respBody string) (*Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = r.URL.RawQuery
		rec.Auth = r.Header.Get("Authorization")
		rec.Body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, StaticToken("tok-123")), rec
}

func TestClientAttachesBearerToken(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"value":[]}`)
	if _, err := c.ListGroupsByName(context.Background(), "Acme Tool Required"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Auth != "Bearer tok-123" {
		t.Fatalf("missing bearer header, got %q", rec.Auth)
	}
	if rec.Method != http.MethodGet || rec.Path != "/v1/groups" {
		t.Fatalf("unexpected request %s %s", rec.Method, rec.Path)
	}
}

func TestClientTokenSourceFailure(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{}`)
	c.Tokens = tokenFunc(func() (string, error) { return "", errors.New("keyring locked") })
	if _, err := c.ListGroupsByName(context.Background(), "x"); err == nil {
		t.Fatal("expected token source error")
	}
}

type tokenFunc func() (string, error)

func (f tokenFunc) Token() (string, error) { return f() }

func TestClientStatusError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusForbidden, "tenant suspended")
	_, err := c.CreateGroup(context.Background(), &GroupCreate{DisplayName: "g"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusForbidden || se.Message != "tenant suspended" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestNameFilterEscaping(t *testing.T) {
	if got := NameFilter("O'Reilly's Tool"); got != "displayName eq 'O''Reilly''s Tool'" {
		t.Fatalf("unexpected filter: %s", got)
	}
	c, rec := newTestClient(t, http.StatusOK, `{"value":[]}`)
	if _, err := c.ListAppsByName(context.Background(), "O'Reilly's Tool"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Query != "filter=displayName+eq+%27O%27%27Reilly%27%27s+Tool%27" {
		t.Fatalf("filter not url-encoded as expected: %s", rec.Query)
	}
}

func TestCreateContentFileReturnsLocator(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"id":"f-9"}`)
	locator, err := c.CreateContentFile(context.Background(), "app-1", "v-1", &ContentFileCreate{Name: "pkg.bin", Size: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if locator != "/v1/apps/app-1/contentVersions/v-1/files/f-9" {
		t.Fatalf("unexpected locator: %s", locator)
	}
	if rec.Path != "/v1/apps/app-1/contentVersions/v-1/files" {
		t.Fatalf("unexpected path: %s", rec.Path)
	}
}

func TestCreateContentFileRejectsMissingID(t *testing.T) {
	c, _ := newTestClient(t, http.StatusCreated, `{}`)
	if _, err := c.CreateContentFile(context.Background(), "a", "v", &ContentFileCreate{}); err == nil {
		t.Fatal("expected error for response without file id")
	}
}

func TestCommitFileBody(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, ``)
	enc := FileEncryptionInfo{EncryptionKey: "k", Mac: "m", InitializationVector: "iv"}
	if err := c.CommitFile(context.Background(), "/v1/apps/a/contentVersions/1/files/f", enc); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rec.Path != "/v1/apps/a/contentVersions/1/files/f/commit" {
		t.Fatalf("unexpected path: %s", rec.Path)
	}
	var body struct {
		FileEncryptionInfo FileEncryptionInfo `json:"fileEncryptionInfo"`
	}
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.FileEncryptionInfo != enc {
		t.Fatalf("encryption info not wrapped: %+v", body)
	}
}

func TestRenewUploadPath(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, ``)
	if err := c.RenewUpload(context.Background(), "/v1/apps/a/contentVersions/1/files/f"); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if rec.Method != http.MethodPost || rec.Path != "/v1/apps/a/contentVersions/1/files/f/renewUpload" {
		t.Fatalf("unexpected request %s %s", rec.Method, rec.Path)
	}
}

func TestSetCommittedContentVersion(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, ``)
	if err := c.SetCommittedContentVersion(context.Background(), "app-1", "7"); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if rec.Method != http.MethodPatch || rec.Path != "/v1/apps/app-1" {
		t.Fatalf("unexpected request %s %s", rec.Method, rec.Path)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["committedContentVersion"] != "7" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHasRemediationEntitlement(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"entitled":true}`)
	ok, err := c.HasRemediationEntitlement(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !ok {
		t.Fatal("expected entitlement")
	}
	if rec.Path != "/v1/licensing/remediations" {
		t.Fatalf("unexpected path: %s", rec.Path)
	}
}

func TestClientTrimsBaseURLSlash(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"value":[]}`)
	c.BaseURL += "/"
	if _, err := c.ListGroupsByName(context.Background(), "g"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Path != "/v1/groups" {
		t.Fatalf("double slash leaked into path: %s", rec.Path)
	}
}
