// Package datasource talks to the AOP network service: it fetches network
// fragments and table projections, uploads custom tables, and caches
// fetched fragments in SQLite so repeated visibility toggles do not hit
// the network again. The server is stateless from the client's
// perspective; table projections are always derived from the element set
// sent up with the request.
package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vhp4safety/aopgraph/pkg/debug"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// QueryType selects what a network fragment query is keyed on.
type QueryType string

// Fragment query types.
const (
	QueryAOP          QueryType = "aop"
	QueryMIE          QueryType = "mie"
	QueryKEUpstream   QueryType = "ke_upstream"
	QueryKEDownstream QueryType = "ke_downstream"
)

// Warning is the structured partial-result payload a fragment response
// may carry (e.g. an incomplete AOP structure on the server side). It is
// distinct from a hard error.
type Warning struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// FragmentResponse is the wire shape of a network fragment.
type FragmentResponse struct {
	Success  bool               `json:"success"`
	Elements []model.RawElement `json:"elements"`
	Warning  *Warning           `json:"warning,omitempty"`
}

// TableRow is one row of a server-side table projection.
type TableRow struct {
	SourceID     string   `json:"source_id"`
	SourceLabel  string   `json:"source_label"`
	Relationship string   `json:"relationship"`
	TargetID     string   `json:"target_id"`
	TargetLabel  string   `json:"target_label"`
	AOPs         []string `json:"aops,omitempty"`
}

// Client fetches from the AOP network service.
type Client struct {
	baseURL string
	hc      *http.Client
	cache   *Cache
	limit   int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithCache attaches a fragment cache.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithConcurrency caps concurrent fragment fetches (default 4).
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// NewClient creates a client for the given service base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limit:   4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchNetworkFragment fetches the fragments for all values of one query
// type, concurrently with a bounded group, serving cache hits locally.
// Results are aggregated in the order of the input values; the first
// warning encountered is kept.
func (c *Client) FetchNetworkFragment(ctx context.Context, qt QueryType, values []string) (*FragmentResponse, error) {
	results := make([][]model.RawElement, len(values))
	warnings := make([]*Warning, len(values))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, value := range values {
		if c.cache != nil {
			if els, ok := c.cache.Get(string(qt), value); ok {
				debug.Log("datasource: cache hit for %s %s (%d elements)", qt, value, len(els))
				results[i] = els
				continue
			}
		}
		g.Go(func() error {
			frag, err := c.fetchOne(gctx, qt, value)
			if err != nil {
				return err
			}
			results[i] = frag.Elements
			warnings[i] = frag.Warning
			if c.cache != nil {
				if err := c.cache.Put(string(qt), value, frag.Elements); err != nil {
					debug.Log("datasource: cache put failed for %s %s: %v", qt, value, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &FragmentResponse{Success: true}
	for i := range results {
		out.Elements = append(out.Elements, results[i]...)
		if out.Warning == nil && warnings[i] != nil {
			out.Warning = warnings[i]
		}
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, qt QueryType, value string) (*FragmentResponse, error) {
	payload := map[string]any{"query_type": qt, "values": []string{value}}
	var frag FragmentResponse
	if err := c.postJSON(ctx, "/network/fragment", payload, &frag); err != nil {
		return nil, fmt.Errorf("fetching %s fragment for %q: %w", qt, value, err)
	}
	if !frag.Success {
		msg := "server reported failure"
		if frag.Warning != nil {
			msg = frag.Warning.Message
		}
		return nil, fmt.Errorf("fetching %s fragment for %q: %s", qt, value, msg)
	}
	return &frag, nil
}

// FetchTableProjection requests the named table rendered from the given
// element set.
func (c *Client) FetchTableProjection(ctx context.Context, table string, elements []model.RawElement) ([]TableRow, error) {
	payload := map[string]any{"elements": elements}
	var resp struct {
		Rows []TableRow `json:"rows"`
	}
	if err := c.postJSON(ctx, "/tables/"+table, payload, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s table: %w", table, err)
	}
	return resp.Rows, nil
}

// FetchByType loads annotation elements of one semantic type (genes,
// compounds, GO processes) for the given anchor node ids.
func (c *Client) FetchByType(ctx context.Context, t model.NodeType, anchorIDs []string) ([]model.RawElement, error) {
	payload := map[string]any{"type": t, "node_ids": anchorIDs}
	var frag FragmentResponse
	if err := c.postJSON(ctx, "/network/annotations", payload, &frag); err != nil {
		return nil, fmt.Errorf("fetching %s annotations: %w", t, err)
	}
	return frag.Elements, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// UploadResult describes an uploaded custom table.
type UploadResult struct {
	TableID  string     `json:"tableId"`
	Columns  []string   `json:"columns"`
	RowCount int        `json:"rowCount"`
	Preview  [][]string `json:"preview"`
}

// MappingConfig tells the server how custom table columns map onto graph
// elements.
type MappingConfig struct {
	IDColumn     string            `json:"id_column"`
	LabelColumn  string            `json:"label_column,omitempty"`
	TypeColumn   string            `json:"type_column,omitempty"`
	SourceColumn string            `json:"source_column,omitempty"`
	TargetColumn string            `json:"target_column,omitempty"`
	Defaults     map[string]string `json:"defaults,omitempty"`
}

// uploadOnce guards against concurrent uploads clobbering each other's
// multipart buffers; uploads are rare and small.
var uploadMu sync.Mutex

// UploadCustomTable posts a local CSV file for server-side ingestion and
// returns the table handle used by MapTableToElements.
func (c *Client) UploadCustomTable(ctx context.Context, path string) (*UploadResult, error) {
	uploadMu.Lock()
	defer uploadMu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tables/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding upload result: %w", err)
	}
	return &out, nil
}

// MapTableToElements asks the server to turn an uploaded table into graph
// elements according to the mapping config.
func (c *Client) MapTableToElements(ctx context.Context, tableID string, mapping MappingConfig) ([]model.RawElement, error) {
	var resp struct {
		Elements []model.RawElement `json:"elements"`
	}
	if err := c.postJSON(ctx, "/tables/"+tableID+"/map", mapping, &resp); err != nil {
		return nil, fmt.Errorf("mapping table %s: %w", tableID, err)
	}
	return resp.Elements, nil
}
