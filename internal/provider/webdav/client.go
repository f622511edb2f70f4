// Package webdav is a minimal WebDAV client for the Nextcloud DAV endpoint.
// It covers the handful of verbs the service needs: MKCOL, PROPFIND, PUT,
// GET and DELETE, and turns PROPFIND multistatus listings into structured
// resource entries.
package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/filemgr/spacescan/internal/metadata"
)

// ErrNotFound is returned when the remote path does not exist.
var ErrNotFound = errors.New("remote path not found")

// Client talks to one Nextcloud DAV files endpoint as one user.
type Client struct {
	httpClient *http.Client
	baseURL    string // e.g. https://host/remote.php/dav/files
	username   string
	password   string
}

// New creates a Client. baseURL is the DAV files root without the username
// segment.
func New(baseURL, username, password string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
	}
}

// davPath is the URL path below the host for a remote target.
func (c *Client) davPath(target string) string {
	u, _ := url.Parse(c.baseURL)
	return path.Join(u.Path, c.username, strings.TrimPrefix(target, "/"))
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	u := c.baseURL + "/" + url.PathEscape(c.username) + "/" + escapePath(strings.TrimPrefix(target, "/"))
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, target, err)
	}
	req.SetBasicAuth(c.username, c.password)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d", method, target, resp.StatusCode)
	}
	return resp, nil
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Mkdir creates a directory at target.
func (c *Client) Mkdir(ctx context.Context, target string) error {
	resp, err := c.do(ctx, "MKCOL", target, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Upload writes content to target, creating or replacing the remote file.
func (c *Client) Upload(ctx context.Context, target string, content io.Reader) error {
	resp, err := c.do(ctx, http.MethodPut, target, content, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Download returns the content of the remote file at target.
func (c *Client) Download(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, target, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}

// Delete removes the file or folder at target.
func (c *Client) Delete(ctx context.Context, target string) error {
	resp, err := c.do(ctx, http.MethodDelete, target, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Stat returns the entry for a single remote path (PROPFIND depth 0).
func (c *Client) Stat(ctx context.Context, target string) (*metadata.Entry, error) {
	entries, err := c.propfind(ctx, target, "0")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	return entries[0], nil
}

// IsDir reports whether target exists and is a folder.
func (c *Client) IsDir(ctx context.Context, target string) (bool, error) {
	e, err := c.Stat(ctx, target)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.Type == metadata.TypeFolder, nil
}

// ListSpace returns the full recursive listing of sourcePath as structured
// entries. DAV listings are not paginated, so the single page is always
// complete and further pages are empty. Satisfies the scan service's Lister.
func (c *Client) ListSpace(ctx context.Context, sourcePath string, page int) ([]*metadata.Entry, bool, error) {
	if page > 0 {
		return nil, true, nil
	}
	entries, err := c.propfind(ctx, sourcePath, "infinity")
	if err != nil {
		return nil, false, err
	}
	// The first response is the requested collection itself, not content.
	out := entries[:0]
	for _, e := range entries {
		if e.Path == sourcePath || e.Path == sourcePath+"/" {
			continue
		}
		out = append(out, e)
	}
	return out, true, nil
}

var propfindBody = []byte(`<?xml version="1.0"?>
<d:propfind xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns">
  <d:prop>
    <oc:fileid/>
    <d:getlastmodified/>
    <d:getcontentlength/>
    <d:resourcetype/>
    <oc:permissions/>
  </d:prop>
</d:propfind>`)

func (c *Client) propfind(ctx context.Context, target, depth string) ([]*metadata.Entry, error) {
	header := http.Header{}
	header.Set("Depth", depth)
	header.Set("Content-Type", "application/xml")

	resp, err := c.do(ctx, "PROPFIND", target, bytes.NewReader(propfindBody), header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read PROPFIND %s: %w", target, err)
	}
	return c.parseMultistatus(data)
}

// multistatus mirrors the DAV response envelope. Property fields match by
// local name, which covers both the DAV: and owncloud namespaces.
type multistatus struct {
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string     `xml:"href"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	FileID       string       `xml:"fileid"`
	LastModified string       `xml:"getlastmodified"`
	Length       int64        `xml:"getcontentlength"`
	Permissions  string       `xml:"permissions"`
	ResourceType resourceType `xml:"resourcetype"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection"`
}

// parseMultistatus turns a PROPFIND response into resource entries, in
// document order. Paths are unescaped and stripped of the DAV prefix so they
// read as provider paths rooted at the user's space.
func (c *Client) parseMultistatus(data []byte) ([]*metadata.Entry, error) {
	var ms multistatus
	if err := xml.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("parse multistatus: %w", err)
	}

	prefix := path.Join(c.davPath("/"), "/")
	entries := make([]*metadata.Entry, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		href, err := url.PathUnescape(r.Href)
		if err != nil {
			href = r.Href
		}
		p := strings.TrimSuffix(strings.TrimPrefix(href, prefix), "/")
		if p == "" {
			p = "/"
		}

		e := &metadata.Entry{Path: p, Type: metadata.TypeFile}
		for _, ps := range r.Propstats {
			if !strings.Contains(ps.Status, "200") {
				continue
			}
			if ps.Prop.FileID != "" {
				e.ID = ps.Prop.FileID
			}
			if ps.Prop.ResourceType.Collection != nil {
				e.Type = metadata.TypeFolder
			}
			if ps.Prop.LastModified != "" {
				if t, err := time.Parse(http.TimeFormat, ps.Prop.LastModified); err == nil {
					e.LastModified = t.UTC()
				}
			}
			if ps.Prop.Length > 0 && e.Type == metadata.TypeFile {
				e.Size = ps.Prop.Length
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
