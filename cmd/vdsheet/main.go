// Package main provides the CLI entry point for vdsheet, a valve
// datasheet generator driven by VDS numbers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/vdsheet/api"
	"go.jacobcolvin.com/vdsheet/datasheet"
	"go.jacobcolvin.com/vdsheet/log"
	"go.jacobcolvin.com/vdsheet/pms"
	"go.jacobcolvin.com/vdsheet/profile"
	"go.jacobcolvin.com/vdsheet/standards"
	"go.jacobcolvin.com/vdsheet/vds"
	"go.jacobcolvin.com/vdsheet/vdsindex"
	"go.jacobcolvin.com/vdsheet/version"
)

// Sentinel errors for I/O at the CLI boundary.
var (
	errReadInput   = errors.New("read input")
	errWriteOutput = errors.New("write output")
)

// Process exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitDecode = 2
	exitConfig = 3
	exitIO     = 4
)

// cli holds the persistent flag values shared by every command.
type cli struct {
	configDir string
	dataDir   string

	logCfg     *log.Config
	profileCfg *profile.Config

	logger *slog.Logger
}

func main() {
	os.Exit(run())
}

func run() int {
	c := &cli{
		logCfg:     log.NewConfig(),
		profileCfg: profile.NewConfig(),
	}

	profiler := c.profileCfg.NewProfiler()

	rootCmd := &cobra.Command{
		Use:   "vdsheet",
		Short: "Generate valve datasheets from VDS numbers",
		Long: `vdsheet decodes VDS (Valve Data Sheet) numbers against a declarative
grammar and generates fully traceable valve datasheets from the piping
material specification, extracted standard clauses, and the VDS index.`,
		Version:       versionString(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			handler, err := c.logCfg.NewHandler(os.Stderr)
			if err != nil {
				return err
			}

			c.logger = slog.New(handler)
			slog.SetDefault(c.logger)

			return profiler.Start()
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return profiler.Stop()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.configDir, "config-dir", "",
		"directory with vds_rules.yaml, field_mappings.yaml, material_mappings.yaml")
	pf.StringVar(&c.dataDir, "data-dir", "",
		"directory with extracted piping_specification.json, standard_clauses.json, vds_index.json")
	c.logCfg.RegisterFlags(pf)
	c.profileCfg.RegisterFlags(pf)

	rootCmd.AddCommand(
		c.generateCmd(),
		c.batchCmd(),
		c.decodeCmd(),
		c.validateCmd(),
		c.serveCmd(),
		c.schemaCmd(),
	)

	if err := c.logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	if err := c.profileCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)

		return exitCode(err)
	}

	return exitOK
}

func versionString() string {
	if version.Version != "" {
		return version.Version
	}

	return "dev (" + version.Revision + ")"
}

// exitCode maps error classes onto process exit codes: decode failures,
// configuration failures, and I/O failures are distinguished for
// scripting.
func exitCode(err error) int {
	var derr *vds.DecodeError

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &derr):
		return exitDecode
	case errors.Is(err, vds.ErrInvalidRules),
		errors.Is(err, datasheet.ErrInvalidSchema),
		errors.Is(err, datasheet.ErrInvalidMaterials),
		errors.Is(err, pms.ErrInvalidData),
		errors.Is(err, standards.ErrInvalidData),
		errors.Is(err, vdsindex.ErrInvalidData):
		return exitConfig
	case errors.Is(err, vds.ErrReadRules),
		errors.Is(err, datasheet.ErrReadSchema),
		errors.Is(err, datasheet.ErrReadMaterials),
		errors.Is(err, pms.ErrReadData),
		errors.Is(err, standards.ErrReadData),
		errors.Is(err, vdsindex.ErrReadData),
		errors.Is(err, errReadInput),
		errors.Is(err, errWriteOutput):
		return exitIO
	}

	return exitError
}

// newEngine builds an engine from the configured directories.
func (c *cli) newEngine() (*datasheet.Engine, error) {
	opts, err := datasheet.FromDirs(c.configDir, c.dataDir)
	if err != nil {
		return nil, err
	}

	opts = append(opts,
		datasheet.WithVersion(versionString()),
		datasheet.WithLogger(c.logger),
	)

	return datasheet.New(opts...)
}

// writeOutput writes JSON to a file or stdout for "" or "-".
func writeOutput(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", errWriteOutput, err)
	}

	out = append(out, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(out)
		if err != nil {
			return fmt.Errorf("%w: %w", errWriteOutput, err)
		}

		return nil
	}

	err = os.WriteFile(path, out, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", errWriteOutput, err)
	}

	return nil
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		flat    bool
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate <vds-no>",
		Short: "Generate the datasheet for one VDS number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			d, err := engine.Generate(ctx, args[0])
			if err != nil {
				return err
			}

			if flat {
				return writeOutput(output, d.Flat())
			}

			return writeOutput(output, d)
		},
	}

	cmd.Flags().BoolVar(&flat, "flat", false, "emit the flat field-to-value view")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "generation deadline")

	return cmd
}

func (c *cli) batchCmd() *cobra.Command {
	var (
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Generate datasheets for a file of VDS numbers, one per line",
		Long: `batch reads VDS numbers from a file (or stdin with "-"), one per
line, and generates every datasheet. Blank lines and lines starting
with # are skipped. Per-code failures are reported in the output
without failing the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes, err := readCodes(args[0])
			if err != nil {
				return err
			}

			engine, err := c.newEngine()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := engine.GenerateBatch(ctx, codes)
			if err != nil {
				return err
			}

			if err := writeOutput(output, res); err != nil {
				return err
			}

			c.logger.Info("batch complete",
				"succeeded", res.Succeeded,
				"failed", res.Failed,
			)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "batch deadline")

	return cmd
}

// readCodes reads one VDS number per line, skipping blanks and
// comments.
func readCodes(path string) ([]string, error) {
	var r io.Reader

	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errReadInput, err)
		}
		defer f.Close()

		r = f
	}

	var codes []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		codes = append(codes, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errReadInput, err)
	}

	return codes, nil
}

func (c *cli) decodeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decode <vds-no>",
		Short: "Decode a VDS number without generating a datasheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}

			dec, err := engine.Decode(args[0])
			if err != nil {
				return err
			}

			return writeOutput(output, dec)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <vds-no>",
		Short: "Check whether a VDS number decodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}

			if err := engine.Validate(args[0]); err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "%s: valid\n", strings.ToUpper(strings.TrimSpace(args[0])))

			return nil
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var (
		host           string
		port           int
		requestTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the datasheet API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.Serve(ctx, api.ServerConfig{
				Host:           host,
				Port:           port,
				RequestTimeout: requestTimeout,
			}, api.New(engine, c.logger), c.logger)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	cmd.Flags().IntVar(&port, "port", 8000, "listen port")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second,
		"per-request deadline")

	return cmd
}

func (c *cli) schemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Emit the JSON Schema of the flat datasheet view",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			engine, err := c.newEngine()
			if err != nil {
				return err
			}

			return writeOutput(output, datasheet.OutputSchema(engine.Schema()))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
