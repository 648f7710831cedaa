package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StorageClient looks up files in an Appwrite-compatible object storage bucket.
type StorageClient struct {
	endpoint   string
	project    string
	bucket     string
	apiKey     string
	httpClient *http.Client
}

func NewStorageClient(endpoint, project, bucket, apiKey string, httpClient *http.Client) *StorageClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &StorageClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		project:    project,
		bucket:     bucket,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type storageFile struct {
	ID   string `json:"$id"`
	Name string `json:"name"`
}

type listFilesResponse struct {
	Total int           `json:"total"`
	Files []storageFile `json:"files"`
}

type storageQuery struct {
	Method    string   `json:"method"`
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// FindFileID returns the id of the first file named name.
func (c *StorageClient) FindFileID(ctx context.Context, name string) (string, bool, error) {
	query, err := json.Marshal(storageQuery{Method: "equal", Attribute: "name", Values: []string{name}})
	if err != nil {
		return "", false, err
	}
	values := url.Values{}
	values.Add("queries[]", string(query))

	endpoint := fmt.Sprintf("%s/storage/buckets/%s/files?%s", c.endpoint, url.PathEscape(c.bucket), values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("X-Appwrite-Project", c.project)
	if c.apiKey != "" {
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("storage list non-200: %d", resp.StatusCode)
	}

	var payload listFilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, err
	}
	if len(payload.Files) == 0 || payload.Files[0].ID == "" {
		return "", false, nil
	}
	return payload.Files[0].ID, true, nil
}

// ViewURL builds the public view URL of a file id or, as a fallback, of a raw name.
func (c *StorageClient) ViewURL(fileID string) string {
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/view?project=%s&mode=admin",
		c.endpoint, escapeComponent(c.bucket), escapeComponent(fileID), url.QueryEscape(c.project))
}

// componentUnescaper restores the marks browsers leave bare in URI components.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapeComponent escapes s the way encodeURIComponent does, so reserved
// characters such as & = + ; , : @ never leak into the path.
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
