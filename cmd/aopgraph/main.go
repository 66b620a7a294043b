package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vhp4safety/aopgraph/internal/datasource"
	"github.com/vhp4safety/aopgraph/pkg/analysis"
	"github.com/vhp4safety/aopgraph/pkg/config"
	"github.com/vhp4safety/aopgraph/pkg/debug"
	"github.com/vhp4safety/aopgraph/pkg/export"
	"github.com/vhp4safety/aopgraph/pkg/session"
	"github.com/vhp4safety/aopgraph/pkg/ui"
	"github.com/vhp4safety/aopgraph/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: XDG config dir)")
	loadPath := flag.String("load", "", "Network document to load (and save back to)")
	baseURL := flag.String("base-url", "", "Override the AOP network service base URL")
	offline := flag.Bool("offline", false, "Do not contact the network service")
	queryType := flag.String("query-type", "aop", "Fragment query type: aop, mie, ke_upstream, ke_downstream")
	query := flag.String("query", "", "Comma-separated query values to fetch (e.g. 'AOP:37,AOP:41')")
	importTable := flag.String("import-table", "", "Upload a CSV table and merge its mapped elements")
	mapSpec := flag.String("map", "id:id", "Column mapping for --import-table (role:column pairs; roles: id, label, type, source, target)")
	robot := flag.Bool("robot", false, "Non-interactive mode: run, print a JSON summary, exit")
	exportPath := flag.String("export", "", "Write the network document to this path and exit")
	snapshotPath := flag.String("snapshot", "", "Write a snapshot image (svg/png) to this path and exit")
	summary := flag.Bool("summary", false, "Print a JSON network summary and exit")
	watch := flag.Bool("watch", false, "Auto-reload the loaded document on outside edits")
	versionFlag := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: aopgraph [options]")
		fmt.Println("\nAn interactive dashboard for Adverse Outcome Pathway networks.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("aopgraph %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Service.BaseURL = *baseURL
	}
	if *watch {
		cfg.Watch = true
	}

	client := buildClient(cfg, *offline)
	sess := session.New(cfg, client)
	defer sess.Close()

	if *loadPath != "" {
		if err := sess.LoadFile(*loadPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *loadPath, err)
			os.Exit(1)
		}
		if cfg.Watch {
			if err := sess.Watch(*loadPath); err != nil {
				debug.Log("main: watch %s: %v", *loadPath, err)
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *query != "" {
		values := splitValues(*query)
		qt := datasource.QueryType(strings.ToLower(*queryType))
		res, err := sess.AddNetworkData(ctx, qt, values)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching network data: %v\n", err)
			os.Exit(1)
		}
		debug.Log("main: merged %d element(s), %d warning(s)",
			len(res.Accepted), len(res.Warnings))
	}

	if *importTable != "" {
		mapping, err := parseMapping(*mapSpec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error in --map: %v\n", err)
			os.Exit(1)
		}
		res, err := sess.ImportTable(ctx, *importTable, mapping)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing table: %v\n", err)
			os.Exit(1)
		}
		debug.Log("main: imported %d element(s) from %s", len(res.Accepted), *importTable)
	}

	// Let debounced refreshes settle so exports see the final state.
	sess.Sched.Wait()

	if *exportPath != "" {
		if err := sess.Save(*exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *exportPath)
	}
	if *snapshotPath != "" {
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:  *snapshotPath,
			Store: sess.Store,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *snapshotPath)
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd())) &&
		!*robot && !*summary && *exportPath == "" && *snapshotPath == ""

	if !interactive {
		if *summary || *robot || (*exportPath == "" && *snapshotPath == "") {
			if err := printSummary(sess); err != nil {
				fmt.Fprintf(os.Stderr, "Error printing summary: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	if err := runTUI(sess, *loadPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// buildClient wires the service client with its SQLite fragment cache.
// Returns nil in offline mode; the session degrades to local-only tables.
func buildClient(cfg config.Config, offline bool) *datasource.Client {
	if offline || cfg.Service.BaseURL == "" {
		return nil
	}
	opts := []datasource.ClientOption{
		datasource.WithConcurrency(cfg.Service.Concurrency),
	}
	if !cfg.Cache.Disabled {
		if path := cfg.CachePath(); path != "" {
			cacheOpts := []datasource.CacheOption{}
			if cfg.Cache.MaxAgeH > 0 {
				cacheOpts = append(cacheOpts,
					datasource.WithMaxAge(time.Duration(cfg.Cache.MaxAgeH)*time.Hour))
			}
			cache, err := datasource.OpenCache(path, cacheOpts...)
			if err != nil {
				debug.Log("main: fragment cache unavailable: %v", err)
			} else {
				opts = append(opts, datasource.WithCache(cache))
			}
		}
	}
	return datasource.NewClient(cfg.Service.BaseURL, opts...)
}

// networkSummary is the robot-mode output shape.
type networkSummary struct {
	Version  string                `json:"version"`
	Stats    analysis.NetworkStats `json:"stats"`
	Selected []string              `json:"selected,omitempty"`
	AOPs     []string              `json:"aops,omitempty"`
	Types    map[string]int        `json:"types"`
}

func printSummary(sess *session.Session) error {
	types := make(map[string]int)
	for _, n := range sess.Store.Nodes() {
		types[string(n.Type)]++
	}
	out := networkSummary{
		Version:  version.Version,
		Stats:    analysis.Compute(sess.Store),
		Selected: sess.Store.Selected(),
		AOPs:     sess.AOPUniverse(),
		Types:    types,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parseMapping reads "role:column" pairs, e.g. "id:gene_id,label:name".
func parseMapping(spec string) (datasource.MappingConfig, error) {
	var m datasource.MappingConfig
	for _, pair := range splitValues(spec) {
		role, column, ok := strings.Cut(pair, ":")
		if !ok || column == "" {
			return m, fmt.Errorf("malformed pair %q (want role:column)", pair)
		}
		switch strings.ToLower(strings.TrimSpace(role)) {
		case "id":
			m.IDColumn = column
		case "label":
			m.LabelColumn = column
		case "type":
			m.TypeColumn = column
		case "source":
			m.SourceColumn = column
		case "target":
			m.TargetColumn = column
		default:
			return m, fmt.Errorf("unknown role %q", role)
		}
	}
	if m.IDColumn == "" {
		return m, fmt.Errorf("an id column is required")
	}
	return m, nil
}

func splitValues(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func runTUI(sess *session.Session, savePath string) error {
	p := tea.NewProgram(
		ui.New(sess, savePath),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
