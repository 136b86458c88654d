package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/bridge"
	"github.com/hpungsan/invoicename/internal/config"
	"github.com/hpungsan/invoicename/internal/db"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/logging"
	"github.com/hpungsan/invoicename/internal/ops"
	"github.com/hpungsan/invoicename/internal/server"
)

// deps carries what the commands share. db is nil for help and version.
type deps struct {
	db  *sql.DB
	cfg *config.Config
	log zerolog.Logger
}

// journal returns the rename journal, or nil when it is disabled.
func (d *deps) journal() *sql.DB {
	if d.cfg.DisableJournal {
		return nil
	}
	return d.db
}

// localBridge builds a filesystem bridge from the config.
func (d *deps) localBridge() *bridge.Local {
	local := bridge.NewLocal(logging.Component("bridge"))
	local.Retries = d.cfg.RenameRetries
	local.RetryDelay = d.cfg.RenameRetryDelay()
	local.MaxPreviewBytes = d.cfg.PreviewMaxBytes
	local.Journal = d.journal()
	return local
}

// session creates a client session against the configured backend.
func (d *deps) session(useBridge bool) (*ops.Session, error) {
	client, err := backend.NewClient(d.cfg.BackendURL, d.cfg.RequestTimeout(), logging.Component("backend"))
	if err != nil {
		return nil, err
	}
	return ops.NewSession(ops.Options{
		Backend:   client,
		Bridge:    d.localBridge(),
		UseBridge: useBridge || d.cfg.UseBridge,
		Template:  d.cfg.Template,
		Logger:    logging.Component("session"),
	}), nil
}

// attached creates a session and loads the task named by --task.
func (d *deps) attached(c *cli.Context, useBridge bool) (*ops.Session, error) {
	taskID := strings.TrimSpace(c.String("task"))
	if taskID == "" {
		return nil, errors.NewInvalidRequest("--task is required")
	}
	s, err := d.session(useBridge)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(c.Context, taskID); err != nil {
		return nil, err
	}
	return s, nil
}

func taskFlag() cli.Flag {
	return &cli.StringFlag{Name: "task", Aliases: []string{"t"}, Usage: "Task id returned by import"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "invoicename",
		Usage:   "Bulk-rename invoice files from their recognized fields",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(d),
			importCmd(d),
			stateCmd(d),
			recognizeCmd(d),
			editCmd(d),
			planCmd(d),
			renameCmd(d),
			previewCmd(d),
			reportCmd(d),
			historyCmd(d),
			settingsCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the rename backend over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "Listen address (defaults to config listen)"},
			&cli.StringFlag{Name: "api-key", EnvVars: []string{"SILICONFLOW_API_KEY"}, Usage: "Recognition API key used when none is stored"},
		},
		Action: func(c *cli.Context) error {
			addr := c.String("listen")
			if addr == "" {
				addr = d.cfg.Listen
			}

			seed := invoice.SettingsUpdate{FilenameTemplate: &d.cfg.Template}
			if key := c.String("api-key"); key != "" {
				seed.APIKey = &key
			}

			srv, err := server.New(server.Options{
				DB:       d.db,
				Seed:     seed,
				Executor: d.localBridge(),
				Logger:   logging.Component("server"),
			})
			if err != nil {
				return outputError(err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			d.log.Info().Str("addr", addr).Msg("serving")
			if err := server.Run(ctx, srv.NewHTTPServer(addr), d.log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// importCmd creates the import command.
func importCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Start a task from invoice files and folders",
		ArgsUsage: "<path>...",
		Action: func(c *cli.Context) error {
			s, err := d.session(false)
			if err != nil {
				return outputError(err)
			}
			output, err := s.Import(c.Context, c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// stateCmd creates the state command.
func stateCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Show a task",
		Flags: []cli.Flag{taskFlag()},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, false)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(s.View())
		},
	}
}

// recognizeCmd creates the recognize command.
func recognizeCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "recognize",
		Usage: "Extract date, item and amount for the selected items",
		Flags: []cli.Flag{
			taskFlag(),
			&cli.StringSliceFlag{Name: "item", Aliases: []string{"i"}, Usage: "Item id (repeatable, defaults to selected items)"},
			&cli.StringFlag{Name: "api-key", Usage: "Use this key for this run only"},
		},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, false)
			if err != nil {
				return outputError(err)
			}
			input := ops.RecognizeInput{ItemIDs: c.StringSlice("item")}
			if key := c.String("api-key"); key != "" {
				input.APIKey = &key
			}
			if err := s.Recognize(c.Context, input); err != nil {
				return outputError(err)
			}
			return outputJSON(s.View())
		},
	}
}

// editCmd creates the edit command.
func editCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Change the date, amount or category of one item",
		Flags: []cli.Flag{
			taskFlag(),
			&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true, Usage: "Item id"},
			&cli.StringFlag{Name: "date", Usage: "Invoice date, YYYY-MM-DD"},
			&cli.StringFlag{Name: "amount", Usage: "Amount"},
			&cli.StringFlag{Name: "category", Usage: "Category"},
		},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, false)
			if err != nil {
				return outputError(err)
			}
			input := ops.EditInput{ItemID: c.String("item")}
			if c.IsSet("date") {
				v := c.String("date")
				input.InvoiceDate = &v
			}
			if c.IsSet("amount") {
				v := c.String("amount")
				input.Amount = &v
			}
			if c.IsSet("category") {
				v := c.String("category")
				input.Category = &v
			}
			if _, err := s.Edit(input); err != nil {
				return outputError(err)
			}
			// One-shot commands do not outlive the edit, so it is synced now.
			if err := s.SyncEdits(c.Context, false); err != nil {
				return outputError(err)
			}
			return outputJSON(s.View())
		},
	}
}

// planCmd creates the plan command.
func planCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Dry-run the rename of the selected items",
		Flags: []cli.Flag{taskFlag()},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, false)
			if err != nil {
				return outputError(err)
			}
			plan, err := s.BuildPlan(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(plan)
		},
	}
}

// renameCmd creates the rename command.
func renameCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "rename",
		Usage: "Rename the selected items",
		Flags: []cli.Flag{
			taskFlag(),
			&cli.BoolFlag{Name: "bridge", Aliases: []string{"b"}, Usage: "Rename on this machine instead of on the backend"},
		},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, c.Bool("bridge"))
			if err != nil {
				return outputError(err)
			}
			output, err := s.ExecuteRename(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// previewCmd creates the preview command.
func previewCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Read one item's file as base64 for display",
		Flags: []cli.Flag{
			taskFlag(),
			&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true, Usage: "Item id"},
		},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, false)
			if err != nil {
				return outputError(err)
			}
			preview, err := s.ReadPreview(c.Context, c.String("item"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(preview)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print a markdown report of a task",
		Flags: []cli.Flag{taskFlag()},
		Action: func(c *cli.Context) error {
			s, err := d.attached(c, false)
			if err != nil {
				return outputError(err)
			}
			md, err := s.Report()
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprint(os.Stdout, md)
			return err
		},
	}
}

// historyCmd creates the history command.
func historyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent entries of the rename journal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "task", Aliases: []string{"t"}, Usage: "Filter by task id"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: db.DefaultJournalLimit, Usage: "Maximum entries"},
		},
		Action: func(c *cli.Context) error {
			journal := d.journal()
			if journal == nil {
				return outputError(errors.NewNotConfigured("rename journal"))
			}
			entries, err := db.ListJournal(journal, db.ListJournalInput{
				TaskID: c.String("task"),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(entries)
		},
	}
}

// settingsCmd creates the settings command. Without flags it prints the
// current settings.
func settingsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change backend settings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Usage: "Filename template, e.g. {date}-{category}-{amount}"},
			&cli.StringFlag{Name: "model", Usage: "Recognition model"},
			&cli.StringFlag{Name: "base-url", Usage: "Recognition API base URL"},
			&cli.StringFlag{Name: "api-key", Usage: "Recognition API key"},
			&cli.StringFlag{Name: "mapping", Usage: `Category keywords as JSON, e.g. {"餐饮":["餐费"]}`},
		},
		Action: func(c *cli.Context) error {
			s, err := d.session(false)
			if err != nil {
				return outputError(err)
			}

			var update invoice.SettingsUpdate
			changed := false
			for flag, dst := range map[string]**string{
				"template": &update.FilenameTemplate,
				"model":    &update.Model,
				"base-url": &update.BaseURL,
				"api-key":  &update.APIKey,
			} {
				if c.IsSet(flag) {
					v := c.String(flag)
					*dst = &v
					changed = true
				}
			}
			if raw := c.String("mapping"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &update.CategoryMapping); err != nil {
					return outputError(errors.NewInvalidRequest("mapping must be a JSON object of keyword lists"))
				}
				changed = true
			}

			var settings *invoice.Settings
			if changed {
				settings, err = s.SaveSettings(c.Context, update)
			} else {
				settings, err = s.LoadSettings(c.Context)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(settings)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, errors.Normalize(rErr)), 1)
	}
	return cli.Exit(err.Error(), 1)
}
