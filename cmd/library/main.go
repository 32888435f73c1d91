package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"booklibrary/internal/app"
	"booklibrary/internal/catalog"
	"booklibrary/internal/config"
	"booklibrary/internal/console"
	"booklibrary/internal/ingest"
	"booklibrary/internal/platform/crypto"

	"github.com/urfave/cli/v2"
)

func main() {
	config.LoadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "library",
		Usage:     "Manage the book catalog from the terminal",
		Writer:    out,
		ErrWriter: out,
		// main reports errors itself; cli.Exit must not terminate the process here.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "library-file",
				Usage:   "Path of the JSON snapshot (file backend)",
				EnvVars: []string{"LIBRARY_FILE"},
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Snapshot backend: file, postgres or sqlite",
				EnvVars: []string{"SNAPSHOT_BACKEND"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Show log output",
				EnvVars: []string{"DEBUG"},
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("debug") {
				log.SetOutput(io.Discard)
			} else {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return withCatalog(c, func(svc *catalog.Service) error {
				return console.New(svc, in, out).Run(c.Context)
			})
		},
		Commands: []*cli.Command{
			{
				Name:  "shell",
				Usage: "Interactive menu (default)",
				Action: func(c *cli.Context) error {
					return withCatalog(c, func(svc *catalog.Service) error {
						return console.New(svc, in, out).Run(c.Context)
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Add a book by looking its ISBN up in Open Library",
				ArgsUsage: "<isbn>",
				Action: func(c *cli.Context) error {
					isbn, err := argISBN(c)
					if err != nil {
						return err
					}
					return withCatalog(c, func(svc *catalog.Service) error {
						book, err := svc.AddByISBN(c.Context, isbn)
						return reportMutation(out, "Added", book, err)
					})
				},
			},
			{
				Name:  "add-manual",
				Usage: "Add a book with the given details",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "author", Required: true},
					&cli.StringFlag{Name: "isbn", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withCatalog(c, func(svc *catalog.Service) error {
						book, err := svc.AddManual(c.Context, c.String("title"), c.String("author"), c.String("isbn"))
						return reportMutation(out, "Added", book, err)
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove the book with the given ISBN",
				ArgsUsage: "<isbn>",
				Action: func(c *cli.Context) error {
					isbn, err := argISBN(c)
					if err != nil {
						return err
					}
					return withCatalog(c, func(svc *catalog.Service) error {
						book, err := svc.Remove(c.Context, isbn)
						return reportMutation(out, "Removed", book, err)
					})
				},
			},
			{
				Name:      "import",
				Usage:     "Add every ISBN listed in a file, one per line (- reads stdin)",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					isbns, err := readISBNFile(c.Args().First(), in)
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}
					return withCatalog(c, func(svc *catalog.Service) error {
						run := ingest.NewService(svc).Run(c.Context, isbns)
						printRun(out, run)
						if run.Status != ingest.StatusCompleted {
							return cli.Exit("import finished with status "+run.Status, 1)
						}
						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "List every book",
				Action: func(c *cli.Context) error {
					return withCatalog(c, func(svc *catalog.Service) error {
						console.New(svc, nil, out).List()
						return nil
					})
				},
			},
			{
				Name:      "find",
				Usage:     "Show the book with the given ISBN",
				ArgsUsage: "<isbn>",
				Action: func(c *cli.Context) error {
					isbn, err := argISBN(c)
					if err != nil {
						return err
					}
					return withCatalog(c, func(svc *catalog.Service) error {
						book, ok := svc.Find(isbn)
						if !ok {
							return cli.Exit(fmt.Sprintf("Book with ISBN %s not found.", isbn), 1)
						}
						fmt.Fprintln(out, book)
						return nil
					})
				},
			},
			{
				Name:  "stats",
				Usage: "Show catalog statistics",
				Action: func(c *cli.Context) error {
					return withCatalog(c, func(svc *catalog.Service) error {
						console.New(svc, nil, out).Statistics()
						return nil
					})
				},
			},
			{
				Name:  "token",
				Usage: "Mint an admin token for the REST API (needs JWT_SECRET)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "librarian"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}},
				},
				Action: func(c *cli.Context) error {
					token, err := crypto.GenerateToken(c.String("secret"), c.String("subject"), crypto.RoleAdmin, c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(out, token)
					return nil
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) config.Config {
	cfg := config.Load()
	if v := c.String("library-file"); v != "" {
		cfg.LibraryFile = v
	}
	if v := c.String("backend"); v != "" {
		cfg.SnapshotBackend = strings.ToLower(v)
	}
	return cfg
}

func withCatalog(c *cli.Context, fn func(*catalog.Service) error) error {
	a, err := app.Open(c.Context, loadConfig(c))
	if err != nil {
		return err
	}
	defer a.Close()
	if a.LoadErr != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: the saved library could not be read (%v); starting with an empty library.\n", a.LoadErr)
		if a.Backup != "" {
			fmt.Fprintf(c.App.ErrWriter, "A copy of the unreadable file was saved to %s.\n", a.Backup)
		}
	}
	return fn(a.Service)
}

func argISBN(c *cli.Context) (string, error) {
	isbn := strings.TrimSpace(c.Args().First())
	if isbn == "" {
		return "", cli.Exit("an ISBN argument is required", 2)
	}
	return isbn, nil
}

func readISBNFile(name string, stdin io.Reader) ([]string, error) {
	switch name {
	case "":
		return nil, errors.New("a file argument is required")
	case "-":
		return ingest.ReadISBNs(stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadISBNs(f)
}

func printRun(out io.Writer, run *ingest.Run) {
	fmt.Fprintf(out, "Imported %d of %d: added=%d skipped=%d failed=%d\n",
		run.Added+run.Skipped, run.Requested, run.Added, run.Skipped, run.Failed)
	for _, f := range run.Failures {
		fmt.Fprintf(out, "  %s: %s\n", f.ISBN, console.Describe(f.Err))
	}
	if run.Unsaved > 0 {
		fmt.Fprintf(out, "warning: %d books could not be saved\n", run.Unsaved)
	}
}

func reportMutation(out io.Writer, verb string, book catalog.Book, err error) error {
	if err != nil && !errors.Is(err, catalog.ErrPersistFailed) {
		return cli.Exit(console.Describe(err), 1)
	}
	fmt.Fprintf(out, "%s: %s\n", verb, book)
	if err != nil {
		fmt.Fprintf(out, "warning: %v\n", err)
	}
	return nil
}
