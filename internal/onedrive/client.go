// Package onedrive talks to the Microsoft Graph drive API: paginated listing of the
// drive root, content download by item id, and overwrite upload of the ledger file
// into the application folder.
//
// Every call takes the bearer token explicitly; the client never acquires or caches
// tokens itself.
package onedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"docsweep/internal/logger"
	"docsweep/pkg/models"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 2048

// Page is one listing page. NextCursor is empty once the tree is exhausted.
type Page struct {
	Items      []models.RemoteFile
	NextCursor string
}

// Client is a minimal Graph drive client.
type Client struct {
	baseURL    string
	folder     string
	httpClient *http.Client
	log        zerolog.Logger
}

// driveItem mirrors the subset of the Graph driveItem resource we read.
type driveItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	ParentReference *struct {
		Path string `json:"path"`
	} `json:"parentReference,omitempty"`
}

type childrenResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// NewClient creates a drive client. baseURL is the Graph root (e.g.
// https://graph.microsoft.com/v1.0) and folder the application folder the ledger is
// uploaded to.
func NewClient(baseURL, folder string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		folder:     "/" + strings.Trim(folder, "/"),
		httpClient: httpClient,
		log:        logger.WithComponent("onedrive"),
	}
}

// List returns one page of the drive root's children. An empty cursor starts from the
// beginning; otherwise cursor must be the NextCursor of the previous page.
func (c *Client) List(ctx context.Context, token, cursor string) (*Page, error) {
	const op = "List"

	target := cursor
	if target == "" {
		target = c.baseURL + "/me/drive/root/children?$expand=children"
	}

	resp, err := c.do(ctx, http.MethodGet, target, token, nil, "")
	if err != nil {
		return nil, newDriveError(op, ErrList, err, 0, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newDriveError(op, ErrList, nil, resp.StatusCode, readErrorBody(resp.Body))
	}

	var body childrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, newDriveError(op, ErrList, err, resp.StatusCode, "failed to decode listing")
	}

	if body.NextLink != "" && body.NextLink == cursor {
		return nil, newDriveError(op, ErrList, ErrCursorLoop, resp.StatusCode, body.NextLink)
	}

	page := &Page{
		Items:      make([]models.RemoteFile, 0, len(body.Value)),
		NextCursor: body.NextLink,
	}
	for _, item := range body.Value {
		page.Items = append(page.Items, item.toRemoteFile())
	}

	c.log.Debug().
		Int("items", len(page.Items)).
		Bool("has_next", page.NextCursor != "").
		Msg("Listed drive page")

	return page, nil
}

// Fetch downloads the raw content of a drive item.
func (c *Client) Fetch(ctx context.Context, token, fileID string) ([]byte, error) {
	const op = "Fetch"

	target := fmt.Sprintf("%s/me/drive/items/%s/content", c.baseURL, url.PathEscape(fileID))
	resp, err := c.do(ctx, http.MethodGet, target, token, nil, "")
	if err != nil {
		return nil, newDriveError(op, ErrFetch, err, 0, fileID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newDriveError(op, ErrFetch, nil, resp.StatusCode, readErrorBody(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newDriveError(op, ErrFetch, err, resp.StatusCode, "failed to read content")
	}
	return data, nil
}

// Upload overwrites name inside the application folder with data.
func (c *Client) Upload(ctx context.Context, token, name, contentType string, data []byte) error {
	const op = "Upload"

	target := fmt.Sprintf("%s/me/drive/root:%s:/content", c.baseURL, escapePath(c.folder+"/"+name))
	resp, err := c.do(ctx, http.MethodPut, target, token, data, contentType)
	if err != nil {
		return newDriveError(op, ErrUpload, err, 0, name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newDriveError(op, ErrUpload, nil, resp.StatusCode, readErrorBody(resp.Body))
	}

	c.log.Info().
		Str("path", c.folder+"/"+name).
		Int("bytes", len(data)).
		Msg("Uploaded file to drive")
	return nil
}

// Location is the drive path Upload writes name to.
func (c *Client) Location(name string) string {
	return c.folder + "/" + name
}

func (c *Client) do(ctx context.Context, method, target, token string, body []byte, contentType string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func (i driveItem) toRemoteFile() models.RemoteFile {
	f := models.RemoteFile{
		ID:     i.ID,
		Name:   i.Name,
		Folder: i.File == nil,
	}
	if i.File != nil {
		f.MimeType = i.File.MimeType
	}
	if i.ParentReference != nil {
		f.ParentPath = i.ParentReference.Path
	}
	return f
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}
