// Fuzzyflake CLI - Command-line tool for fuzzy Snowflake ID lookup
//
// Usage:
//   fuzzyflake lookup [flags] <query>   Resolve a garbled ID against a directory
//   fuzzyflake inspect <id>             Decode and inspect an ID
//   fuzzyflake bench [flags]            Run index performance benchmarks
//
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"zombiezen.com/go/log"

	"github.com/sxyafiq/fuzzyflake"
	"github.com/sxyafiq/fuzzyflake/directory"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "lookup", "l":
		cmdLookup(os.Args[2:])
	case "inspect", "parse", "i":
		cmdInspect(os.Args[2:])
	case "bench", "benchmark", "b":
		cmdBench(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("fuzzyflake CLI version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Fuzzyflake CLI - Fuzzy lookup for Snowflake IDs

Usage:
  fuzzyflake <command> [flags]

Commands:
  lookup, l             Resolve a possibly garbled ID
  inspect, i            Decode and inspect an ID
  bench, b              Run index performance benchmarks
  version               Show version information
  help                  Show this help message

Examples:
  # Look up a query against IDs read from a file (one per line)
  fuzzyflake lookup --ids members.txt 3456789012345678

  # Look up within one guild of a membership database
  fuzzyflake lookup --db directory.db --guild 434243504530063371 3456789012345678

  # Decode an ID's timestamp and payload fields
  fuzzyflake inspect 861128391953352906

  # Benchmark a 100k-member index
  fuzzyflake bench --size 100000

For detailed help on a command:
  fuzzyflake <command> --help

`)
}

// ============================================================================
// Lookup Command
// ============================================================================

func cmdLookup(args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	idsFile := fs.String("ids", "", "File with candidate IDs, one per line")
	dbPath := fs.String("db", "", "Membership database path")
	guildStr := fs.String("guild", "", "Guild ID to search within (requires --db)")
	chopped := fs.Int("chopped", fuzzyflake.DefaultMaxDigitsChopped, "Max digits assumed missing per end")
	all := fs.Bool("all", false, "Print every match instead of the best one")
	verbose := fs.Bool("verbose", false, "Log index activity to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fuzzyflake lookup [flags] <query>

Resolve a query that may be missing digits from either end of a real ID.
Candidates come from --ids (a plain file) or from a guild of a --db
membership database.

Flags:
  --ids FILE        File with candidate IDs, one per line
  --db FILE         Membership database path
  --guild ID        Guild to search within (requires --db)
  --chopped N       Max digits assumed missing per end (default: %d)
  --all             Print every match in best-first order
  --verbose         Log index activity to stderr

Examples:
  fuzzyflake lookup --ids members.txt 3456789012345678
  fuzzyflake lookup --db directory.db --guild 434243504530063371 --all 8456789012345678
`, fuzzyflake.DefaultMaxDigitsChopped)
	}

	fs.Parse(args)
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	query, err := fuzzyflake.ParseFuzzyID(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid query %q: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	var logger log.Logger = log.Discard
	if *verbose {
		logger = log.New(os.Stderr, "fuzzyflake: ", log.StdFlags, nil)
	}

	var x *fuzzyflake.Index
	switch {
	case *idsFile != "":
		x, err = loadIndexFromFile(*idsFile, *chopped, logger)
	case *dbPath != "":
		if *guildStr == "" {
			fmt.Fprintln(os.Stderr, "Error: --db requires --guild")
			os.Exit(1)
		}
		x, err = loadIndexFromStore(*dbPath, *guildStr, *chopped, logger)
	default:
		fmt.Fprintln(os.Stderr, "Error: one of --ids or --db is required")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *all {
		matches := x.FindFuzzyMatchesQuery(query)
		if len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No match for %s among %d IDs\n", query, x.Len())
			os.Exit(1)
		}
		for _, id := range matches {
			fmt.Println(id)
		}
		return
	}

	id, ok := x.FindFuzzyMatchQuery(query)
	if !ok {
		fmt.Fprintf(os.Stderr, "No match for %s among %d IDs\n", query, x.Len())
		os.Exit(1)
	}
	fmt.Println(id)
}

func loadIndexFromFile(path string, chopped int, logger log.Logger) (*fuzzyflake.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []fuzzyflake.ID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := fuzzyflake.ParseID(line)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	x, err := fuzzyflake.NewWithCapacity(chopped, len(ids))
	if err != nil {
		return nil, err
	}
	x.SetLogger(logger)
	x.Extend(ids)
	return x, nil
}

func loadIndexFromStore(path, guildStr string, chopped int, logger log.Logger) (*fuzzyflake.Index, error) {
	guild, err := fuzzyflake.ParseID(guildStr)
	if err != nil {
		return nil, fmt.Errorf("invalid guild ID %q: %w", guildStr, err)
	}

	store, err := directory.OpenStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	members, err := store.Members(context.Background(), guild)
	if err != nil {
		return nil, err
	}

	x, err := fuzzyflake.NewWithCapacity(chopped, len(members))
	if err != nil {
		return nil, err
	}
	x.SetLogger(logger)
	x.Extend(members)
	return x, nil
}

// ============================================================================
// Inspect Command
// ============================================================================

func cmdInspect(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: fuzzyflake inspect <id>\n")
		fmt.Fprintf(os.Stderr, "\nDecode an ID into its timestamp and payload fields.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fuzzyflake inspect 861128391953352906\n")
		os.Exit(1)
	}

	id, err := fuzzyflake.ParseID(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: unable to parse ID %q: %v\n", args[0], err)
		os.Exit(1)
	}

	fmt.Printf("Snowflake ID: %s\n", id)
	fmt.Printf("\n")
	fmt.Printf("Components:\n")
	fmt.Printf("  Timestamp:  %s (%d ms since epoch)\n", id.Time().UTC().Format(time.RFC3339), id.Timestamp())
	fmt.Printf("  Worker:     %d\n", id.Worker())
	fmt.Printf("  Process:    %d\n", id.Process())
	fmt.Printf("  Sequence:   %d\n", id.Sequence())
	fmt.Printf("\n")
	fmt.Printf("Encodings:\n")
	fmt.Printf("  Decimal:    %s\n", id)
	fmt.Printf("  Hex:        %s\n", id.Hex())
	fmt.Printf("\n")
	fmt.Printf("Age:          %v\n", id.Age().Round(time.Millisecond))
	fmt.Printf("Valid:        %v\n", id.IsValid())
}

// ============================================================================
// Benchmark Command
// ============================================================================

func cmdBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	size := fs.Int("size", 100_000, "Number of IDs to index")
	queries := fs.Int("queries", 10_000, "Number of lookups per benchmark")
	chopped := fs.Int("chopped", fuzzyflake.DefaultMaxDigitsChopped, "Max digits assumed missing per end")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fuzzyflake bench [flags]

Run performance benchmarks: index construction, exact membership, and
fuzzy lookup over randomly generated IDs.

Flags:
  --size N          Number of IDs to index (default: 100000)
  --queries N       Number of lookups per benchmark (default: 10000)
  --chopped N       Max digits assumed missing per end (default: %d)

Examples:
  fuzzyflake bench --size 500000
  fuzzyflake bench --size 100000 --chopped 3
`, fuzzyflake.DefaultMaxDigitsChopped)
	}

	fs.Parse(args)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	span := uint64(999_999_999_999_999_999 - fuzzyflake.MinIDNumber)
	randomID := func() fuzzyflake.ID {
		return fuzzyflake.MinIDNumber + fuzzyflake.ID(rng.Uint64()%span)
	}

	ids := make([]fuzzyflake.ID, *size)
	for i := range ids {
		ids[i] = randomID()
	}

	fmt.Printf("Running benchmarks (size: %d, queries: %d, chopped: %d)\n\n", *size, *queries, *chopped)

	// Benchmark 1: Bulk construction
	fmt.Printf("1. Index Construction:\n")
	start := time.Now()
	x, err := fuzzyflake.NewWithCapacity(*chopped, *size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating index: %v\n", err)
		os.Exit(1)
	}
	x.Extend(ids)
	elapsed := time.Since(start)
	fmt.Printf("   Indexed:        %d IDs\n", x.Len())
	fmt.Printf("   Duration:       %v\n", elapsed)
	fmt.Printf("   Rate:           %.0f IDs/sec\n\n", float64(x.Len())/elapsed.Seconds())

	// Benchmark 2: Exact membership
	fmt.Printf("2. Exact Membership:\n")
	start = time.Now()
	hits := 0
	for i := 0; i < *queries; i++ {
		if x.Contains(ids[rng.Intn(len(ids))]) {
			hits++
		}
	}
	elapsed = time.Since(start)
	fmt.Printf("   Queries:        %d (%d hits)\n", *queries, hits)
	fmt.Printf("   Rate:           %.0f queries/sec (%.0f ns/op)\n\n",
		float64(*queries)/elapsed.Seconds(), float64(elapsed.Nanoseconds())/float64(*queries))

	// Benchmark 3: Fuzzy lookup with one front digit chopped
	fmt.Printf("3. Fuzzy Lookup (1 front digit missing):\n")
	start = time.Now()
	hits = 0
	for i := 0; i < *queries; i++ {
		id := ids[rng.Intn(len(ids))]
		chop := fuzzyflake.ID(1)
		for chop*10 <= id {
			chop *= 10
		}
		if _, ok := x.FindFuzzyMatch(id % chop); ok {
			hits++
		}
	}
	elapsed = time.Since(start)
	fmt.Printf("   Queries:        %d (%d hits)\n", *queries, hits)
	fmt.Printf("   Rate:           %.0f queries/sec (%.0f ns/op)\n\n",
		float64(*queries)/elapsed.Seconds(), float64(elapsed.Nanoseconds())/float64(*queries))

	fmt.Printf("Benchmark complete!\n")
}
