package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/di"
	"faqdesk/backend/pkg/logger"

	"github.com/urfave/cli/v2"
)

// opener builds the dependency container a command runs against.
type opener func(ctx context.Context, log *logger.Logger) (*di.Container, error)

func openContainer(ctx context.Context, log *logger.Logger) (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Cache.Enabled = false
	cfg.Observability.MetricsEnabled = false
	cfg.Observability.TracingEnabled = false
	return di.New(ctx, cfg, log)
}

func newApp(open opener) *cli.App {
	var log *logger.Logger

	// withContainer opens the container for one command and closes it after.
	withContainer := func(action func(c *cli.Context, container *di.Container) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			container, err := open(c.Context, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer container.Close(context.Background())
			return action(c, container)
		}
	}

	return &cli.App{
		Name:  "faqctl",
		Usage: "Administer the FAQ helpdesk database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: func(c *cli.Context) error {
			cfg := logger.DefaultConfig()
			cfg.Level = c.String("log-level")
			cfg.JSON = false
			log = logger.New(cfg)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import FAQs from a csv, json, yaml or xlsx file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "File format; detected from the extension when empty",
					},
				},
				Action: withContainer(importCommand),
			},
			{
				Name:  "export",
				Usage: "Export FAQs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (csv, json, yaml, xlsx)",
						Value:   string(service.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file; stdout when empty",
					},
					&cli.BoolFlag{
						Name:  "include-inactive",
						Usage: "Also export inactive FAQs",
					},
				},
				Action: withContainer(exportCommand),
			},
			{
				Name:      "search",
				Usage:     "Show the FAQs a question would match",
				ArgsUsage: "QUESTION",
				Action:    withContainer(searchCommand),
			},
			{
				Name:   "stats",
				Usage:  "Print FAQ statistics as JSON",
				Action: withContainer(statsCommand),
			},
			{
				Name:   "backlog",
				Usage:  "Summarise escalations waiting for staff",
				Action: withContainer(backlogCommand),
			},
			{
				Name:  "create-admin",
				Usage: "Create an administrator account if the login id is free",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "login-id", Required: true, Usage: "Login id"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Password", EnvVars: []string{"ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "name", Usage: "Display name", Value: "Administrator"},
				},
				Action: withContainer(createAdminCommand),
			},
		},
	}
}

func importCommand(c *cli.Context, container *di.Container) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a file to import is required")
	}

	format, err := service.FormatFromFilename(path)
	if name := c.String("format"); name != "" {
		format, err = service.ParseFormat(name)
	}
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := container.FAQService.Import(c.Context, format, f)
	if result != nil {
		for _, rowErr := range result.Errors {
			fmt.Fprintln(c.App.ErrWriter, rowErr)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d FAQs from %s, skipped %d\n", result.Imported, filepath.Base(path), result.Skipped)
	return nil
}

func exportCommand(c *cli.Context, container *di.Container) error {
	format, err := service.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	var w io.Writer = c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := container.FAQService.Export(c.Context, format, c.Bool("include-inactive"), w)
	if err != nil {
		return err
	}
	if c.String("output") != "" {
		fmt.Fprintf(c.App.Writer, "exported %d FAQs to %s\n", n, c.String("output"))
	}
	return nil
}

func searchCommand(c *cli.Context, container *di.Container) error {
	faqs, err := container.FAQService.Search(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if len(faqs) == 0 {
		fmt.Fprintln(c.App.Writer, "no match, the question would be escalated")
		return nil
	}
	for _, faq := range faqs {
		fmt.Fprintf(c.App.Writer, "%d\t%d views\t%s\n", faq.ID, faq.ViewCount, faq.Title)
	}
	return nil
}

func statsCommand(c *cli.Context, container *di.Container) error {
	stats, err := container.FAQService.Stats(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

func backlogCommand(c *cli.Context, container *di.Container) error {
	summary, err := container.HelpdeskService.Backlog(c.Context, container.Config.Escalation.StaleAfter)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, summary)
}

func createAdminCommand(c *cli.Context, container *di.Container) error {
	created, err := container.UserService.EnsureAdmin(c.Context, c.String("login-id"), c.String("password"), c.String("name"))
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(c.App.Writer, "login id %s already exists\n", c.String("login-id"))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "admin %s created\n", c.String("login-id"))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
