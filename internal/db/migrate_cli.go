package db

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

// ErrMigrateUsage marks a malformed migrate invocation. Callers print the
// help text and exit non-zero.
var ErrMigrateUsage = errors.New("invalid migrate usage")

// MigrateCLI runs schema maintenance actions for the migrate subcommand.
// Out receives reports; In answers the force confirmation prompt.
type MigrateCLI struct {
	DB    *DB
	FS    fs.FS
	Out   io.Writer
	In    io.Reader
	Force bool // skip the force confirmation prompt
}

type migrateAction struct {
	arg   string // argument placeholder, empty when none is taken
	about string
	run   func(c *MigrateCLI, arg string) error
}

var migrateActions = map[string]migrateAction{
	"up":      {about: "apply every pending migration", run: (*MigrateCLI).up},
	"down":    {about: "revert the newest applied migration", run: (*MigrateCLI).down},
	"status":  {about: "report applied and available schema versions", run: (*MigrateCLI).status},
	"version": {arg: "<N>", about: "move the schema up or down to version N", run: (*MigrateCLI).to},
	"force":   {arg: "<N>", about: "mark version N as applied and clean, for dirty-state recovery", run: (*MigrateCLI).force},
}

var migrateOrder = []string{"up", "down", "status", "version", "force"}

// Run executes action. arg is required for actions that take a version.
func (c *MigrateCLI) Run(action string, args []string) error {
	if action == "help" {
		WriteMigrateHelp(c.Out)
		return nil
	}
	a, ok := migrateActions[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrMigrateUsage, action)
	}
	var arg string
	if a.arg != "" {
		if len(args) == 0 {
			return fmt.Errorf("%w: %s needs %s", ErrMigrateUsage, action, a.arg)
		}
		arg = args[0]
	}
	return a.run(c, arg)
}

func (c *MigrateCLI) up(string) error {
	if err := c.DB.MigrateUp(c.FS); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return c.report("schema is current")
}

func (c *MigrateCLI) down(string) error {
	if err := c.DB.MigrateDown(c.FS); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return c.report("reverted one migration")
}

func (c *MigrateCLI) to(arg string) error {
	v, err := parseVersion(arg)
	if err != nil {
		return err
	}
	if err := c.DB.MigrateTo(c.FS, uint(v)); err != nil {
		return fmt.Errorf("migrate to %d: %w", v, err)
	}
	return c.report(fmt.Sprintf("moved to version %d", v))
}

func (c *MigrateCLI) force(arg string) error {
	v, err := parseVersion(arg)
	if err != nil {
		return err
	}
	if !c.Force {
		fmt.Fprintf(c.Out, "Forcing the recorded version to %d does not run any SQL.\nType 'yes' to continue: ", v)
		if !confirmed(c.In) {
			fmt.Fprintln(c.Out, "not forced")
			return nil
		}
	}
	if err := c.DB.MigrateForce(c.FS, v); err != nil {
		return fmt.Errorf("migrate force %d: %w", v, err)
	}
	return c.report(fmt.Sprintf("forced version %d", v))
}

func (c *MigrateCLI) status(string) error {
	st, err := c.DB.GetMigrationStatus(c.FS)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "database:  %s\n", c.DB.Path())
	fmt.Fprintf(c.Out, "applied:   %d\n", st.CurrentVersion)
	fmt.Fprintf(c.Out, "available: %d\n", st.LatestVersion)
	switch {
	case st.Dirty:
		fmt.Fprintf(c.Out, "state:     dirty; repair the schema by hand, then run 'splits migrate force %d'\n", st.CurrentVersion)
	case st.Pending() > 0:
		fmt.Fprintf(c.Out, "state:     %d pending; run 'splits migrate up'\n", st.Pending())
	default:
		fmt.Fprintln(c.Out, "state:     current")
	}
	return nil
}

func (c *MigrateCLI) report(msg string) error {
	v, dirty, err := c.DB.MigrateVersion(c.FS)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "%s (version %d, dirty %t)\n", msg, v, dirty)
	return nil
}

func parseVersion(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: version must be a non-negative integer, got %q", ErrMigrateUsage, s)
	}
	return v, nil
}

func confirmed(r io.Reader) bool {
	if r == nil {
		return false
	}
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

// RunMigrateCommand opens the database at dbPath without migrating it
// and runs args[0] against the embedded migrations.
func RunMigrateCommand(args []string, dbPath string, out io.Writer, in io.Reader) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing action", ErrMigrateUsage)
	}
	migrationsFS, err := MigrationsFS()
	if err != nil {
		return err
	}
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	cli := &MigrateCLI{DB: database, FS: migrationsFS, Out: out, In: in}
	return cli.Run(args[0], args[1:])
}

// WriteMigrateHelp lists the migrate actions.
func WriteMigrateHelp(w io.Writer) {
	fmt.Fprintln(w, "usage: splits [-db path] migrate <action> [N]")
	fmt.Fprintln(w)
	for _, name := range migrateOrder {
		a := migrateActions[name]
		fmt.Fprintf(w, "  %-12s %s\n", strings.TrimSpace(name+" "+a.arg), a.about)
	}
	fmt.Fprintf(w, "  %-12s %s\n", "help", "show this list")
}
