package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loykin/logparsely"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string
}

// IngestFlags holds flags for the ingest command.
type IngestFlags struct {
	DBPath        string
	Sources       []string
	LogLevel      string
	LogFile       string
	MetricsListen string
}

// buildRoot creates the root command and wires the subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	ingestFlags := &IngestFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createIngestCommand(globalFlags, ingestFlags),
		createPurgeCommand(),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "logparsely",
		Short: "Stream shell command output into a schema-less SQLite store",
		Long: `Logparsely runs shell commands, parses each stdout line as JSON, and
persists the flattened fields into per-command SQLite tables whose columns
grow automatically as new fields appear.

Examples:
  logparsely ingest --src='tail -f /var/log/app.log' --src='journalctl -o json -f'
  logparsely ingest --db-path=capture.db --src='kubectl logs -f my-pod'
  logparsely purge                  # Delete generated capture databases`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createIngestCommand(globalFlags *GlobalFlags, ingestFlags *IngestFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Capture one or more source commands",
		Long: `Start every given source command, stream its stdout into the capture
database, and keep running until 'q' is pressed or an interrupt arrives.
When no --db-path is given a unique database is generated under logs/.

Examples:
  logparsely ingest --src='tail -f /var/log/app.log'
  logparsely ingest --config=capture.toml
  logparsely ingest --db-path=run.db --src='cmd-a' --src='cmd-b' --metrics-listen=:9091`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestCommand(globalFlags, ingestFlags)
		},
	}

	cmd.Flags().StringSliceVar(&ingestFlags.Sources, "src", nil, "source command to capture (repeatable)")
	cmd.Flags().StringVar(&ingestFlags.DBPath, "db-path", "", "capture database path (default: generated under logs/)")
	cmd.Flags().StringVar(&ingestFlags.LogLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	cmd.Flags().StringVar(&ingestFlags.LogFile, "log-file", "", "write diagnostics to a rotated file instead of stderr")
	cmd.Flags().StringVar(&ingestFlags.MetricsListen, "metrics-listen", "", "expose Prometheus metrics on this address (e.g. :9091)")
	return cmd
}

func createPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete generated capture databases",
		Long: `Delete previously generated capture databases under the logs directory.
Only files matching the generated naming convention are removed; databases
created with an explicit --db-path are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Purging generated capture databases")
			n, err := logparsely.PurgeGenerated()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d file(s)\n", n)
			return nil
		},
	}
}
