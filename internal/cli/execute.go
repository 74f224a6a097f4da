package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"zerodha-allocator/internal/config"
	"zerodha-allocator/internal/logging"
)

// Execute loads configuration, wires the application and runs the command
// line in args. Errors are printed to stderr before being returned.
func Execute(args []string) error {
	return execute(args, os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(configDirFromArgs(args))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}

	logger := logging.NewLoggerWithConfig(cfg.Logging)
	app := NewApp(cfg, logger)
	defer app.Close()

	rootCmd := NewRootCmd(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// configDirFromArgs picks --config out of args before cobra parses them,
// since configuration is needed to build the command tree.
func configDirFromArgs(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	dir := fs.String("config", "", "")
	fs.BoolP("help", "h", false, "")
	_ = fs.Parse(args)
	return *dir
}
