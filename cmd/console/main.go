// Package main runs a LacyLights console in the terminal, reading one command
// line per input line.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/bbernstein/lacylights-console/internal/command"
	"github.com/bbernstein/lacylights-console/internal/config"
	"github.com/bbernstein/lacylights-console/internal/database"
	"github.com/bbernstein/lacylights-console/internal/dispatch"
	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/logging"
	"github.com/bbernstein/lacylights-console/internal/services/console"
	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/internal/services/ofl"
)

// Version is set at build time.
var Version = "0.1.0"

const prompt = "lacylights> "

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "lacylights-console",
		Usage:   "type lighting console commands at a terminal",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database holding the show; in-memory only when empty",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "patch",
				Usage:   "YAML or TOML patch file applied at startup",
				Sources: cli.EnvVars("PATCH_FILE"),
			},
			&cli.StringFlag{
				Name:    "ofl",
				Usage:   "directory of Open Fixture Library profiles",
				Sources: cli.EnvVars("OFL_FIXTURE_DIR"),
			},
			&cli.BoolFlag{
				Name:  "output",
				Usage: "transmit Art-Net/sACN using the environment output settings",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "trace, debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runConsole,
	}
}

func runConsole(ctx context.Context, cmd *cli.Command) error {
	errWriter := cmd.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	log.Logger = logging.New(errWriter, cmd.String("log-level"), true)

	cfg := config.Load()

	lib := fixture.NewLibrary()
	if dir := cmd.String("ofl"); dir != "" {
		if _, err := ofl.LoadDir(dir, lib); err != nil {
			return err
		}
	}

	opts := console.Options{Library: lib, UniverseCount: cfg.DMXUniverseCount}
	var store *database.Store
	if url := cmd.String("db"); url != "" {
		db, err := database.Connect(database.Config{URL: url, MaxIdleConn: 1, MaxOpenConn: 1})
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()
		store = database.NewStore(db)
		opts.Store = store
	}

	c := console.New(opts)
	if store != nil {
		show, err := store.Load(ctx, lib)
		if err != nil {
			return err
		}
		if err := c.Restore(show); err != nil {
			return err
		}
	}

	if path := cmd.String("patch"); path != "" {
		pf, err := fixture.LoadPatchFile(path)
		if err != nil {
			return err
		}
		fixtures, err := pf.Resolve(lib)
		if err != nil {
			return err
		}
		if err := c.AddFixtures(fixtures...); err != nil {
			return err
		}
	}

	c.Start()
	defer c.Stop()

	if cmd.Bool("output") {
		sender := dmx.NewUDPSender()
		defer func() { _ = sender.Close() }()
		output := dmx.NewService(cfg.DMX(), c, sender)
		if err := output.Start(ctx); err != nil {
			return err
		}
		defer output.Stop()
	}

	reader := cmd.Reader
	if reader == nil {
		reader = os.Stdin
	}
	writer := cmd.Writer
	if writer == nil {
		writer = os.Stdout
	}
	return repl(ctx, c, reader, writer)
}

// Submitter executes one command line and keeps the lines it was given.
type Submitter interface {
	Submit(text string) dispatch.Result
	History() *command.History
}

// Arrow keys reach a line-buffered terminal as escape sequences.
var (
	keysUp   = []string{"\x1b[A", "\x1bOA"}
	keysDown = []string{"\x1b[B", "\x1bOB"}
)

// arrowKeys splits a line made only of up/down escape sequences into moves,
// -1 for up and +1 for down. It returns false for any other line.
func arrowKeys(line string) ([]int, bool) {
	var moves []int
	for line != "" {
		switch {
		case hasKeyPrefix(line, keysUp):
			moves = append(moves, -1)
		case hasKeyPrefix(line, keysDown):
			moves = append(moves, 1)
		default:
			return nil, false
		}
		line = line[3:]
	}
	return moves, len(moves) > 0
}

func hasKeyPrefix(line string, keys []string) bool {
	for _, k := range keys {
		if strings.HasPrefix(line, k) {
			return true
		}
	}
	return false
}

// navigate walks the history and returns the line the cursor lands on,
// or "" past the newest entry.
func navigate(h *command.History, moves []int) string {
	var line string
	for _, m := range moves {
		if m < 0 {
			line, _ = h.Prev()
		} else {
			line, _ = h.Next()
		}
	}
	return line
}

// repl submits each input line until EOF, "exit" or "quit". A line of up or
// down arrows recalls a history entry and shows it after the prompt; an
// empty line then runs it.
func repl(ctx context.Context, c Submitter, in io.Reader, out io.Writer) error {
	history := c.History()
	scanner := bufio.NewScanner(in)
	recalled := ""
	_, _ = fmt.Fprint(out, prompt)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if moves, ok := arrowKeys(line); ok && history != nil {
			recalled = navigate(history, moves)
			_, _ = fmt.Fprint(out, prompt+recalled)
			continue
		}
		if line == "" {
			line = recalled
		}
		recalled = ""
		if history != nil {
			history.Reset()
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		}
		res := c.Submit(line)
		switch {
		case !res.Success:
			_, _ = fmt.Fprintf(out, "error: %s\n", res.Message)
		case res.Message != "":
			_, _ = fmt.Fprintln(out, res.Message)
		}
		_, _ = fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}
