// Command elefante is the single local-process entry point for the
// memory core: a thin CLI over application/app.Service's operation table
// (spec.md §6.1). It replaces the teacher's per-Lambda handler binaries
// (cmd/api, cmd/worker, cmd/ws-*, ...) — this core has no HTTP/MCP façade
// of its own (spec.md §1 scopes that out as an external collaborator) but
// still needs one process a human or a script can run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/application/app"
	"github.com/elefante-ai/elefante/application/retrieval"
	"github.com/elefante-ai/elefante/application/writecoordinator"
	"github.com/elefante-ai/elefante/domain/graph"
	"github.com/elefante-ai/elefante/infrastructure/di"
	"github.com/elefante-ai/elefante/infrastructure/locking"
)

// Timeout defaults spec.md §5 names for the three classes of public
// operation this CLI drives.
const (
	ingestTimeout     = 10 * time.Second
	searchTimeout     = 5 * time.Second
	healthScanTimeout = 30 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "elefante:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("no command given")
	}

	configPath := os.Getenv("ELEFANTE_CONFIG")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		configPath = filepath.Join(home, ".elefante", "config.yaml")
	}

	container, err := di.NewContainer(configPath)
	if err != nil {
		return fmt.Errorf("initialize container: %w", err)
	}
	defer container.Close()

	release, err := locking.Acquire(filepath.Join(container.Config.HomeDir, "locks"), "elefante")
	if err != nil {
		container.Logger.Warn("could not acquire process lock, continuing without it", zap.Error(err))
	} else {
		defer release()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return runAdd(container, rest)
	case "search":
		return runSearch(container, rest)
	case "constellation":
		return runConstellation(container, rest)
	case "stats":
		return runStats(container, rest)
	case "health":
		return runHealth(container, rest)
	case "proactive":
		return runProactive(container, rest)
	case "reconcile":
		return runReconcile(container, rest)
	case "entity":
		return runEntity(container, rest)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: elefante <command> [flags]

commands:
  add           add a new memory
  search        search memories
  constellation search, grouped into primary/supporting/contradicting/context
  stats         print store counts and schema status
  health        print per-memory health + conflicts
  proactive     surface memories matching the current context
  reconcile     heal missing structured-store mirrors
  entity        create or fetch an entity by (name, type)`)
}

func runAdd(c *di.Container, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	domain := fs.String("domain", "", "memory domain override")
	session := fs.String("session", "", "ingesting session id")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	content := strings.Join(fs.Args(), " ")
	if content == "" {
		return fmt.Errorf("add requires content, e.g. elefante add \"NEVER commit secrets\"")
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	req := writecoordinator.AddMemoryRequest{
		Content:  content,
		Metadata: writecoordinator.IngestMetadata{Domain: *domain, SessionID: *session},
	}
	if *tags != "" {
		req.Tags = strings.Split(*tags, ",")
	}

	cmd := &app.AddMemoryCommand{Request: req}
	if err := c.Mediator.Send(ctx, cmd); err != nil {
		return err
	}
	return printJSON(map[string]string{
		"memory_id":      cmd.Result.MemoryID.String(),
		"classification": string(cmd.Result.Classification),
		"existing_id":    cmd.Result.ExistingID.String(),
	})
}

func runSearch(c *di.Container, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	mode := fs.String("mode", "hybrid", "semantic|structured|hybrid")
	limit := fs.Int("limit", 10, "max results")
	session := fs.String("session", "", "session id for conversation-source candidates")
	explain := fs.Bool("explain", true, "include per-signal explanation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("search requires a query")
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	res, err := c.Mediator.Query(ctx, &app.SearchQuery{
		Query: query, Mode: retrieval.Mode(*mode),
		Opts: retrieval.Options{Limit: *limit, IncludeExplanation: *explain, SessionID: *session},
	})
	if err != nil {
		return err
	}
	results, ok := res.([]retrieval.Result)
	if !ok {
		return fmt.Errorf("unexpected search result type %T", res)
	}
	return printJSON(resultsToView(results))
}

func runConstellation(c *di.Container, args []string) error {
	fs := flag.NewFlagSet("constellation", flag.ExitOnError)
	mode := fs.String("mode", "hybrid", "semantic|structured|hybrid")
	limit := fs.Int("limit", 10, "max results considered")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("constellation requires a query")
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	result, err := c.Mediator.Query(ctx, &app.ConstellationQuery{Query: query, Mode: retrieval.Mode(*mode), Opts: retrieval.Options{Limit: *limit}})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runStats(c *di.Container, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()
	stats, err := c.Mediator.Query(ctx, &app.StatsQuery{})
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runHealth(c *di.Container, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthScanTimeout)
	defer cancel()
	report, err := c.Mediator.Query(ctx, &app.HealthQuery{})
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runProactive(c *di.Container, args []string) error {
	fs := flag.NewFlagSet("proactive", flag.ExitOnError)
	domain := fs.String("domain", "", "conversation domain")
	concepts := fs.String("concepts", "", "comma-separated recent concepts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	currentContext := strings.Join(fs.Args(), " ")
	if currentContext == "" {
		return fmt.Errorf("proactive requires the current context text")
	}
	var recent []string
	if *concepts != "" {
		recent = strings.Split(*concepts, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	suggestions, err := c.Mediator.Query(ctx, &app.ProactiveQuery{
		CurrentContext: currentContext, ConversationDomain: *domain, RecentConcepts: recent,
	})
	if err != nil {
		return err
	}
	return printJSON(suggestions)
}

func runReconcile(c *di.Container, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthScanTimeout)
	defer cancel()
	cmd := &app.ReconcileCommand{}
	if err := c.Mediator.Send(ctx, cmd); err != nil {
		return err
	}
	return printJSON(cmd.Result)
}

func runEntity(c *di.Container, args []string) error {
	fs := flag.NewFlagSet("entity", flag.ExitOnError)
	entityType := fs.String("type", string(graph.EntityTypeConcept), "person|technology|concept|project|location")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name := strings.Join(fs.Args(), " ")
	if name == "" {
		return fmt.Errorf("entity requires a name")
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	cmd := &app.CreateEntityCommand{Name: name, Type: *entityType}
	if err := c.Mediator.Send(ctx, cmd); err != nil {
		return err
	}
	return printJSON(map[string]string{"entity_id": cmd.Result})
}

func resultsToView(results []retrieval.Result) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		row := map[string]interface{}{
			"memory_id": r.Memory.ID().String(),
			"title":     r.Memory.Title(),
			"score":     r.Score,
			"source":    r.Source,
		}
		if r.Explanation != nil {
			row["explanation"] = r.Explanation
		}
		out = append(out, row)
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
