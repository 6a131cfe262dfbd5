// ABOUTME: Entry point for the IntroEngine MCP server and CLI
// ABOUTME: Routes to MCP server or CLI commands based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/introengine/cli"
	"github.com/harperreed/introengine/config"
	"github.com/harperreed/introengine/db"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/tracing"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/introengine/introengine.db)")
	envFile := flag.String("env", ".env", "Optional .env file to load")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("introengine version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *initOnly {
		log.Printf("Database initialized at %s", cfg.DBPath)
		return
	}

	ctx := context.Background()
	shutdownTracing := tracing.Init(ctx, zl, tracing.Config{
		Enabled:     cfg.TraceEnabled,
		Version:     version,
		Endpoint:    cfg.TraceEndpoint,
		Insecure:    cfg.TraceInsecure,
		SampleRatio: cfg.TraceSampleRatio,
	})
	defer func() { _ = shutdownTracing(context.Background()) }()

	app, err := cli.NewApp(ctx, cfg, zl, database)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	command := args[0]
	commandArgs := args[1:]

	if command != "mcp" {
		log.Printf("IntroEngine database: %s", cfg.DBPath)
	}

	switch command {
	case "mcp":
		err = cli.MCPCommand(ctx, app)
	case "net":
		err = cli.NetCommand(ctx, app, commandArgs)
	case "icp":
		err = cli.ICPCommand(ctx, app, commandArgs)
	case "opps":
		err = cli.OppsCommand(ctx, app, commandArgs)
	case "run":
		err = cli.RunCommand(ctx, app, commandArgs)
	case "schedule":
		err = cli.ScheduleCommand(ctx, app, commandArgs)
	case "followups":
		err = cli.FollowupsCommand(ctx, app, commandArgs)
	case "viz":
		err = cli.VizCommand(ctx, app, commandArgs)
	case "import-google":
		err = cli.ImportGoogleCommand(ctx, app, commandArgs)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		app.Close()
		os.Exit(1)
	}

	if err != nil {
		// log.Fatalf skips deferred calls.
		app.Close()
		_ = shutdownTracing(context.Background())
		_ = database.Close()
		log.Fatalf("Error: %v", err)
	}
}

func printUsage() {
	fmt.Printf(`introengine v%s - warm intro and outbound opportunity engine

USAGE:
  introengine [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/introengine/introengine.db)
  --env <file>           .env file to load (default: .env, skipped if missing)
  --init                 Initialize database and exit

COMMANDS:
  mcp                    Start MCP server for Claude Desktop
  net                    Manage contacts, companies and interactions
  icp                    Define the ideal customer profile
  opps                   Review and progress opportunities
  run                    Run a pipeline stage for this account
  schedule               Re-evaluate every account on a schedule
  followups              Draft and review follow-ups
  viz                    Dashboard and intro path graphs
  import-google          Import Google Contacts

NETWORK:
  introengine net add-contact --name <name> [--email] [--company] [--domain] [--title]
                              [--strength 0-100] [--worked-at Company[@domain][:title][:2015-2019]]...
  introengine net add-company --name <name> [--domain] [--industry] [--employees N]
                              [--tech a,b] [--location] [--maturity low|medium|high]
                              [--signals funding=80,hiring=60]
  introengine net log [--type meeting|call|email|message|event] [--notes] [--at RFC3339] <contact-id>
  introengine net contacts [--company <name>]
  introengine net companies [--min-icp N]
  introengine net remove-contact <contact-id>

ICP:
  introengine icp set [--industries a,b] [--min-employees N] [--max-employees N] [--tech a,b]
                      [--maturity] [--locations a,b] [--roles a,b] [--pain-points]
                      [--triggers] [--anti-criteria]
  introengine icp set --file icp.yaml
  introengine icp show [--yaml]
  introengine icp settings [--name] [--allow-inferred true|false] [--outbound-quota N]

OPPORTUNITIES:
  introengine opps list [--status] [--type] [--min-score N] [--all] [--limit N]
  introengine opps show <id>
  introengine opps status <id> <status>
  introengine opps intro <id>

PIPELINE:
  introengine run [--stage inference|outbound|scoring|followup|full] [--history]
  introengine schedule [--once] [--followups=false]

FOLLOW-UPS:
  introengine followups list [--opp <id>] [--limit N]
  introengine followups draft <opportunity-id>
  introengine followups run

VISUALIZATION:
  introengine viz dashboard
  introengine viz paths [--target <company-id>] [--output file.dot]
  introengine viz contact [--output file.dot] <contact-id>

GOOGLE:
  introengine import-google init
  introengine import-google contacts
  introengine import-google status

`, version)
}
