package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"menuplan/internal/app"
	"menuplan/internal/config"
	"menuplan/internal/menu"
	"menuplan/internal/metrics"
	"menuplan/internal/planner"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd, args := os.Args[1], os.Args[2:]

	// parse needs neither configuration nor a database.
	if cmd == "parse" {
		runParse(args)
		return
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, cleanup, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	switch cmd {
	case "shopping":
		fs := flag.NewFlagSet("shopping", flag.ExitOnError)
		out := fs.String("out", ".", "Directory for list.md and list_clustered.md")
		fs.Parse(args)

		source := readPlan(fs.Arg(0))
		doc, err := application.ParsePlan(source)
		if err != nil {
			exitWithParseError(source, err)
		}
		list, err := application.ShoppingList(ctx, doc)
		if err != nil {
			log.Fatalf("Failed to build shopping list: %v", err)
		}
		if err := app.WriteShoppingList(list, *out); err != nil {
			log.Fatalf("Failed to write shopping list: %v", err)
		}
		fmt.Printf("Wrote shopping list with %d trips to %s.\n", len(list.Trips), *out)
		for _, name := range list.Missing {
			fmt.Printf("No recipe for [[%s]]\n", name)
		}
	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		user := fs.String("user", "cli", "User the plan belongs to")
		fs.Parse(args)

		source := readPlan(fs.Arg(0))
		imported, err := application.ImportPlan(ctx, *user, source)
		if err != nil {
			exitWithParseError(source, err)
		}
		if imported.DuplicateStart {
			fmt.Println("Note: you already had a plan with this start date; both are kept.")
		}
		fmt.Print(imported.Plan.Summary())
		fmt.Printf("Saved plan %s.\n", imported.Plan.ID)
	case "plans":
		fs := flag.NewFlagSet("plans", flag.ExitOnError)
		user := fs.String("user", "cli", "User whose plans to list")
		limit := fs.Int("n", 10, "Number of plans")
		fs.Parse(args)

		plans, err := application.RecentPlans(ctx, *user, *limit)
		if err != nil {
			log.Fatalf("Failed to list plans: %v", err)
		}
		printPlans(plans)
	case "publish":
		fs := flag.NewFlagSet("publish", flag.ExitOnError)
		draft := fs.Bool("draft", false, "Create the post as a draft")
		fs.Parse(args)
		if fs.NArg() != 1 {
			log.Fatalf("Usage: menuplan publish [-draft] <plan-id>")
		}

		post, err := application.PublishPlan(ctx, fs.Arg(0), !*draft)
		if err != nil {
			log.Fatalf("Publishing failed: %v", err)
		}
		fmt.Printf("Created post %s %s\n", post.ID, post.URL)
	case "ingest":
		if _, err := application.IngestRecipes(ctx); err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
	case "clip":
		if len(args) != 1 {
			log.Fatalf("Usage: menuplan clip <url>")
		}
		res, err := application.ClipURL(ctx, args[0])
		if err != nil {
			log.Fatalf("Clipping failed: %v", err)
		}
		fmt.Printf("Saved [[%s]] with %d ingredients to %s\n", res.Recipe.Title, len(res.Recipe.Ingredients), res.Path)
	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)

		affected, err := application.Metrics().Cleanup(*days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
		fmt.Println(metrics.GetSysHealth(cfg.DatabasePath, cfg.RecipeStoragePath, cfg.DishRoot))
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the parsed document as JSON")
	fs.Parse(args)

	source := readPlan(fs.Arg(0))
	doc, err := menu.Parse(source)
	if err != nil {
		exitWithParseError(source, err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(doc); err != nil {
			log.Fatalf("Failed to encode document: %v", err)
		}
		return
	}
	fmt.Print((&planner.MealPlan{Document: doc}).Summary())
}

// readPlan reads the plan file named on the command line, stdin for "-".
// The default is plan.md in the working directory.
func readPlan(path string) string {
	var (
		data []byte
		err  error
	)
	switch path {
	case "-":
		data, err = io.ReadAll(os.Stdin)
	case "":
		data, err = os.ReadFile("plan.md")
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		log.Fatalf("Failed to read plan: %v", err)
	}
	return string(data)
}

func exitWithParseError(source string, err error) {
	var syntaxErr *menu.SyntaxError
	if errors.As(err, &syntaxErr) {
		fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, syntaxErr.Excerpt(source))
		os.Exit(1)
	}
	log.Fatalf("Failed: %v", err)
}

func printPlans(plans []*planner.MealPlan) {
	if len(plans) == 0 {
		fmt.Println("No plans saved yet.")
		return
	}
	for _, p := range plans {
		doc := p.Document
		fmt.Printf("%s  %s  %2d days  %d persons  (saved %s)\n",
			p.ID, doc.StartDate, len(doc.Days), doc.PersonsCount, p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func printUsage() {
	fmt.Println("Usage: menuplan <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse [-json] [file]        Parse a menu plan and print it")
	fmt.Println("  shopping [-out dir] [file]  Write list.md and list_clustered.md for a plan")
	fmt.Println("  import [-user id] [file]    Store a plan and its shopping list")
	fmt.Println("  plans [-user id] [-n N]     List stored plans")
	fmt.Println("  publish [-draft] <plan-id>  Post a stored plan to Ghost")
	fmt.Println("  ingest                      Fetch recipes from Ghost")
	fmt.Println("  clip <url>                  Save a recipe page as a dish file")
	fmt.Println("  metrics-cleanup [-days N]   Remove old metric records")
	fmt.Println("\nPlan files default to ./plan.md, use - for stdin.")
}
