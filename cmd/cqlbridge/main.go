package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/koba/cqlbridge/internal/bridge"
	"github.com/koba/cqlbridge/internal/database"
	"github.com/koba/cqlbridge/internal/diff"
	"github.com/koba/cqlbridge/internal/executor"
	"github.com/koba/cqlbridge/internal/generator"
	"github.com/koba/cqlbridge/internal/snapshot"
)

var (
	configPath  string
	metricsFile string
	astPath     string
	subject     string
	credential  string
	keyspace    string
	tables      []string
	savePath    string
	sincePath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "cqlbridge",
	Short:         "SQL to CQL translator",
	Long:          `Translate relational statements into CQL, run them against Cassandra and manage caller permissions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var translateCmd = &cobra.Command{
	Use:   "translate [statement]",
	Short: "Translate a statement to CQL",
	Long: `Translate one statement. The statement is a JSON AST read from --ast
(or given as the argument), or a metadata command such as SHOW TABLES.`,
	Args: cobra.ArbitraryArgs,
	RunE: runTranslate,
}

var execCmd = &cobra.Command{
	Use:   "exec [statement]",
	Short: "Translate and execute a statement",
	Long:  `Translate one statement, check the caller's permission and execute it against Cassandra.`,
	Args:  cobra.ArbitraryArgs,
	RunE:  runExec,
}

var permsCmd = &cobra.Command{
	Use:   "perms",
	Short: "List a caller's allowed operations",
	Args:  cobra.NoArgs,
	RunE:  runPerms,
}

var grantCmd = &cobra.Command{
	Use:   "grant operation...",
	Short: "Allow a subject to run operations (sql authority)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGrant,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke operation...",
	Short: "Withdraw operations from a subject (sql authority)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRevoke,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Generate a CQL schema from a relational database",
	Long: `Read table definitions from the database described by DB_TYPE, DB_HOST,
DB_PORT, DB_NAME, DB_USER, DB_PASSWORD (or DB_PATH for sqlite) and print
the equivalent CQL schema. With --since, compare the catalog against a
snapshot saved earlier with --save and print the CQL that migrates the
keyspace.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write prometheus metrics to this textfile on exit")

	for _, cmd := range []*cobra.Command{translateCmd, execCmd} {
		cmd.Flags().StringVar(&astPath, "ast", "", "Read the statement AST from a JSON file (- for stdin)")
	}
	for _, flags := range []*pflag.FlagSet{execCmd.Flags(), permsCmd.PersistentFlags()} {
		flags.StringVar(&subject, "subject", "", "Caller identity")
		flags.StringVar(&credential, "credential", "", "Caller credential")
	}
	permsCmd.MarkPersistentFlagRequired("subject")
	permsCmd.AddCommand(grantCmd)
	permsCmd.AddCommand(revokeCmd)

	importCmd.Flags().StringVar(&keyspace, "keyspace", "", "Keyspace to create the tables in")
	importCmd.Flags().StringSliceVar(&tables, "tables", nil, "Tables to import (default: all tables)")
	importCmd.Flags().StringVar(&savePath, "save", "", "Save the catalog to a snapshot file")
	importCmd.Flags().StringVar(&sincePath, "since", "", "Print only the changes since this snapshot file")

	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(permsCmd)
	rootCmd.AddCommand(importCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer app.Close()

	text, err := statementText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	res := app.service.Handle(cmd.Context(), bridge.Request{Text: text})
	return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
}

func runExec(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer app.Close()

	text, err := statementText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	res := app.service.Handle(cmd.Context(), bridge.Request{
		Text:    text,
		Execute: true,
		Caller:  executor.Caller{Subject: subject, Credential: credential},
	})
	if err := printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res); err != nil {
		return err
	}
	if res.Execution != nil && res.Execution.Result != nil && len(res.Execution.Result.Columns) > 0 {
		printRows(cmd.OutOrStdout(), res.Execution.Result)
	}
	if res.Summary != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", res.Summary, res.Execution.Duration)
	}
	return nil
}

func runPerms(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.cache == nil {
		return errors.New("no permission authority is configured")
	}
	ops := app.cache.AllowedOperations(cmd.Context(), subject, credential)
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "%s may not run any operation\n", subject)
		return nil
	}
	fmt.Fprintf(out, "%s may run: %s\n", subject, strings.Join(names, ", "))
	if entry, ok := app.cache.Lookup(subject); ok {
		fmt.Fprintf(out, "fetched %s\n", humanize.Time(entry.RefreshedAt))
	}
	return nil
}

func runGrant(cmd *cobra.Command, args []string) error {
	return changeGrants(cmd, args, true)
}

func runRevoke(cmd *cobra.Command, args []string) error {
	return changeGrants(cmd, args, false)
}

func changeGrants(cmd *cobra.Command, operations []string, grant bool) error {
	app, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.sqlAuth == nil {
		return errors.WithHint(
			errors.New("grants can only be changed with the sql authority"),
			"set authority.type to sql")
	}
	if grant {
		err = app.sqlAuth.Grant(cmd.Context(), subject, operations...)
	} else {
		err = app.sqlAuth.Revoke(cmd.Context(), subject, operations...)
	}
	if err != nil {
		return err
	}
	verb := "revoked from"
	if grant {
		verb = "granted to"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", strings.Join(operations, ", "), verb, subject)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer app.Close()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		return errors.Wrap(err, "failed to load database config")
	}
	db, err := database.Open(cmd.Context(), dbConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	gen := generator.NewGenerator(app.engine, keyspace)
	src := db.Introspector()

	var script *generator.Script
	if sincePath != "" || savePath != "" {
		current, err := snapshot.Capture(cmd.Context(), src, dbConfig.Type+":"+dbConfig.Database+dbConfig.Path, tables)
		if err != nil {
			return err
		}
		if savePath != "" {
			if err := snapshot.Save(cmd.Context(), current, savePath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "catalog of %d table(s) saved to %s\n", len(current.Tables), savePath)
		}
		if sincePath != "" {
			previous, err := snapshot.Load(cmd.Context(), sincePath)
			if err != nil {
				return err
			}
			diffs := diff.Compare(previous, current)
			diff.Display(cmd.ErrOrStderr(), diffs)
			script = gen.Migrate(diffs)
		}
	}
	if script == nil {
		script, err = gen.Generate(cmd.Context(), src, tables)
		if err != nil {
			return err
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), script.String())
	if len(script.Skipped) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d table(s) skipped: %s\n", len(script.Skipped), strings.Join(script.Skipped, ", "))
	}
	return nil
}

func statementText(stdin io.Reader, args []string) (string, error) {
	switch {
	case astPath == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read statement from stdin")
		}
		return string(data), nil
	case astPath != "":
		data, err := os.ReadFile(astPath)
		if err != nil {
			return "", errors.Wrap(err, "failed to read statement file")
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	return "", errors.New("no statement given; pass it as an argument or with --ast")
}

func printResult(out, errOut io.Writer, res bridge.Result) error {
	for _, w := range res.Warnings {
		fmt.Fprintf(errOut, "-- warning: %s\n", w)
	}
	if !res.Success {
		return errors.Newf("%s: %s", res.Category, res.Diagnostic)
	}
	fmt.Fprintln(out, res.Output)
	return nil
}

func printRows(out io.Writer, rs *executor.ResultSet) {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(rs.Columns)
	for _, row := range rs.Rows {
		cells := make([]string, len(rs.Columns))
		for i, col := range rs.Columns {
			if v := row[col]; v != nil {
				cells[i] = fmt.Sprint(v)
			} else {
				cells[i] = "NULL"
			}
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Fprintf(out, "(%s)\n", humanize.Comma(int64(len(rs.Rows)))+" rows")
}
