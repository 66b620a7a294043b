package datasource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vhp4safety/aopgraph/internal/datasource"
	"github.com/vhp4safety/aopgraph/pkg/model"
	"github.com/vhp4safety/aopgraph/pkg/testutil"
)

// fragmentServer serves one pathway per requested value and counts
// fragment requests.
func fragmentServer(t *testing.T, hits *int32, warn *datasource.Warning) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/network/fragment", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		var req struct {
			QueryType string   `json:"query_type"`
			Values    []string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := datasource.FragmentResponse{
			Success:  true,
			Elements: testutil.Pathway(req.Values[0], 2),
			Warning:  warn,
		}
		json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchNetworkFragmentAggregatesInInputOrder(t *testing.T) {
	var hits int32
	srv := fragmentServer(t, &hits, nil)
	c := datasource.NewClient(srv.URL, datasource.WithConcurrency(2))

	frag, err := c.FetchNetworkFragment(context.Background(), datasource.QueryAOP, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(frag.Elements) != 6 {
		t.Fatalf("elements = %d, want both pathways", len(frag.Elements))
	}
	// Fragment order follows input order even with concurrent fetches.
	if frag.Elements[0].ID != "a-n0" || frag.Elements[3].ID != "b-n0" {
		t.Errorf("order = %s .. %s", frag.Elements[0].ID, frag.Elements[3].ID)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("requests = %d, want one per value", got)
	}
}

func TestFetchNetworkFragmentKeepsFirstWarning(t *testing.T) {
	var hits int32
	warn := &datasource.Warning{Type: "incomplete_aop", Message: "AOP structure incomplete"}
	srv := fragmentServer(t, &hits, warn)
	c := datasource.NewClient(srv.URL)

	frag, err := c.FetchNetworkFragment(context.Background(), datasource.QueryAOP, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if frag.Warning == nil || frag.Warning.Message != "AOP structure incomplete" {
		t.Errorf("warning = %+v", frag.Warning)
	}
}

func TestFetchNetworkFragmentServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(datasource.FragmentResponse{
			Success: false,
			Warning: &datasource.Warning{Message: "unknown AOP"},
		})
	}))
	defer srv.Close()
	c := datasource.NewClient(srv.URL)

	if _, err := c.FetchNetworkFragment(context.Background(), datasource.QueryAOP, []string{"a"}); err == nil {
		t.Errorf("expected error for success=false response")
	}
}

func TestFetchNetworkFragmentHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := datasource.NewClient(srv.URL)

	if _, err := c.FetchNetworkFragment(context.Background(), datasource.QueryAOP, []string{"a"}); err == nil {
		t.Errorf("expected error for HTTP 502")
	}
}

func TestFetchTableProjection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tables/aop" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Elements []model.RawElement `json:"elements"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		rows := []datasource.TableRow{{
			SourceID: req.Elements[0].ID, SourceLabel: req.Elements[0].Label,
			Relationship: "ker",
			TargetID:     req.Elements[1].ID, TargetLabel: req.Elements[1].Label,
			AOPs: []string{"AOP:1"},
		}}
		json.NewEncoder(w).Encode(map[string]any{"rows": rows})
	}))
	defer srv.Close()
	c := datasource.NewClient(srv.URL)

	rows, err := c.FetchTableProjection(context.Background(), "aop", testutil.Pathway("p", 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].SourceID != "p-n0" || rows[0].TargetID != "p-n1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestFetchByType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/network/annotations" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Type    string   `json:"type"`
			NodeIDs []string `json:"node_ids"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Type != string(model.NodeTypeUniProt) || len(req.NodeIDs) != 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(datasource.FragmentResponse{
			Success:  true,
			Elements: testutil.Annotate(req.NodeIDs[0], "gene1", model.NodeTypeUniProt),
		})
	}))
	defer srv.Close()
	c := datasource.NewClient(srv.URL)

	els, err := c.FetchByType(context.Background(), model.NodeTypeUniProt, []string{"p-n0", "p-n1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 || els[0].ID != "gene1" {
		t.Errorf("elements = %+v", els)
	}
}

func TestUploadAndMapCustomTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tables/upload":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f, hdr, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.Close()
			json.NewEncoder(w).Encode(datasource.UploadResult{
				TableID:  "tbl-1",
				Columns:  []string{"gene_id", "name"},
				RowCount: 2,
				Preview:  [][]string{{hdr.Filename}},
			})
		case "/tables/tbl-1/map":
			var mapping datasource.MappingConfig
			json.NewDecoder(r.Body).Decode(&mapping)
			if mapping.IDColumn != "gene_id" {
				http.Error(w, "wrong mapping", http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"elements": testutil.Annotate("p-n0", "gene1", model.NodeTypeUniProt),
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := datasource.NewClient(srv.URL)

	csvPath := filepath.Join(t.TempDir(), "genes.csv")
	if err := os.WriteFile(csvPath, []byte("gene_id,name\nP01375,TNF\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	up, err := c.UploadCustomTable(context.Background(), csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if up.TableID != "tbl-1" || up.RowCount != 2 {
		t.Errorf("upload result = %+v", up)
	}

	els, err := c.MapTableToElements(context.Background(), up.TableID,
		datasource.MappingConfig{IDColumn: "gene_id", LabelColumn: "name"})
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 || els[0].ID != "gene1" {
		t.Errorf("mapped elements = %+v", els)
	}
}

func TestFragmentCacheServesRepeatFetches(t *testing.T) {
	var hits int32
	srv := fragmentServer(t, &hits, nil)

	cache, err := datasource.OpenCache(filepath.Join(t.TempDir(), "fragments.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	c := datasource.NewClient(srv.URL, datasource.WithCache(cache))

	for i := 0; i < 3; i++ {
		frag, err := c.FetchNetworkFragment(context.Background(), datasource.QueryAOP, []string{"a"})
		if err != nil {
			t.Fatal(err)
		}
		if len(frag.Elements) != 3 {
			t.Fatalf("pass %d: elements = %d", i, len(frag.Elements))
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("requests = %d, want 1 (repeats served from cache)", got)
	}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	cache, err := datasource.OpenCache(filepath.Join(t.TempDir(), "fragments.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	els := testutil.Pathway("p", 3, "AOP:1")
	if err := cache.Put("aop", "AOP:1", els); err != nil {
		t.Fatal(err)
	}

	got, ok := cache.Get("aop", "AOP:1")
	if !ok {
		t.Fatalf("cached fragment not found")
	}
	if len(got) != len(els) || got[0].ID != "p-n0" || got[0].Label != "p event 0" {
		t.Errorf("got = %+v", got)
	}

	if _, ok := cache.Get("aop", "AOP:2"); ok {
		t.Errorf("unexpected hit for unknown value")
	}
	if _, ok := cache.Get("mie", "AOP:1"); ok {
		t.Errorf("query types share cache entries")
	}
}

func TestCacheMaxAgeExpiry(t *testing.T) {
	cache, err := datasource.OpenCache(
		filepath.Join(t.TempDir(), "fragments.db"),
		datasource.WithMaxAge(time.Nanosecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if err := cache.Put("aop", "AOP:1", testutil.Pathway("p", 2)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok := cache.Get("aop", "AOP:1"); ok {
		t.Errorf("expired entry served")
	}
}

func TestCachePurge(t *testing.T) {
	cache, err := datasource.OpenCache(filepath.Join(t.TempDir(), "fragments.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	cache.Put("aop", "AOP:1", testutil.Pathway("p", 2))
	if err := cache.Purge(); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get("aop", "AOP:1"); ok {
		t.Errorf("entry survived purge")
	}
}
