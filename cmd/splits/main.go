package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jagreenwood/healthkit-workout-splits/internal/config"
	"github.com/jagreenwood/healthkit-workout-splits/internal/db"
	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
	"github.com/jagreenwood/healthkit-workout-splits/internal/version"
)

// defineFlags registers the command-line flags on fs. Flags left unset
// fall back to the config file.
func defineFlags(fs *flag.FlagSet) {
	fs.String("config", "", "Path to a JSON split config (default: "+config.DefaultConfigPath+" when present)")
	fs.String("db", "", "SQLite database path")
	fs.Float64("distance", 0, "Split distance in -unit")
	fs.String("unit", "", "Split distance unit (m, km, mi)")
	fs.Bool("exclude-paused", true, "Exclude paused time from split durations")
	fs.String("units", "", "Speed display units ("+units.GetValidUnitsString()+")")
	fs.String("listen", "", "Listen address for serve")
	fs.Int("workers", 0, "Concurrent activities for batch and backfill")
}

func main() {
	defineFlags(flag.CommandLine)
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "version":
		fmt.Println(version.String())
		return
	case "help":
		printUsage()
		return
	}

	cfg, err := loadConfig(flag.CommandLine)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if command == "migrate" {
		if err := db.RunMigrateCommand(args, cfg.GetDBPath(), os.Stdout, os.Stdin); err != nil {
			if errors.Is(err, db.ErrMigrateUsage) {
				db.WriteMigrateHelp(os.Stderr)
			}
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	switch command {
	case "import":
		handleImport(cfg, args)
	case "list":
		handleList(cfg, args)
	case "compute":
		handleCompute(cfg, args)
	case "batch":
		handleBatch(cfg, args)
	case "plot":
		handlePlot(cfg, args)
	case "delete":
		handleDelete(cfg, args)
	case "serve":
		handleServe(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies any flags set on the
// command line over it.
func loadConfig(fs *flag.FlagSet) (*config.SplitConfig, error) {
	cfg := config.DefaultSplitConfig()
	path := fs.Lookup("config").Value.String()
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadSplitConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "db":
			s := v.(string)
			cfg.DBPath = &s
		case "distance":
			d := v.(float64)
			cfg.SplitDistance = &d
		case "unit":
			s := v.(string)
			cfg.SplitUnit = &s
		case "exclude-paused":
			b := v.(bool)
			cfg.ExcludePausedTime = &b
		case "units":
			s := v.(string)
			cfg.DisplayUnits = &s
		case "listen":
			s := v.(string)
			cfg.Listen = &s
		case "workers":
			n := v.(int)
			cfg.BatchWorkers = &n
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printUsage() {
	fmt.Println(`splits - distance split aggregation for recorded workouts

Usage: splits [flags] <command> [args]

Commands:
  import <file.fit|dir>...      Import FIT activities into the database
  list [limit]                  List stored activities, newest first
  compute <activity-id>         Compute and print splits for one activity
  batch [activity-id...]        Compute splits for many activities (all pending when none given)
  plot <activity-id> [out.png]  Render a pace chart (png, svg or pdf)
  delete <activity-id>          Delete an activity with its samples and split runs
  serve                         Run the HTTP API with the background backfiller
  migrate <action>              Manage database schema migrations
  version                       Show version information
  help                          Show this help message

Flags:`)
	flag.PrintDefaults()
}
