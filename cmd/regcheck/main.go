package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raymyers/regcheck/pkg/alloc"
	"github.com/raymyers/regcheck/pkg/compare"
	"github.com/raymyers/regcheck/pkg/config"
	"github.com/raymyers/regcheck/pkg/export"
	"github.com/raymyers/regcheck/pkg/report"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var version = "0.1.0"

// Dump flags for re-exporting a single result
var (
	dText bool
	dJSON bool
)

// Comparison and output options. Explicitly set flags win over the config file.
var (
	configPath string
	tolerance  float64
	modeName   string
	precision  int
	colorMode  string
	showDiff   bool
	verbose    bool
)

// ErrArgs indicates the wrong number of input files for the selected action
var ErrArgs = errors.New("wrong number of input files")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// dumpFlagNames lists flags that also accept a single dash (-dtext)
var dumpFlagNames = []string{"dtext", "djson"}

// normalizeFlags converts single-dash dump flags like -dtext to --dtext
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range dumpFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "regcheck [reference.json] [candidate.json]",
		Short: "regcheck compares a candidate register allocation against a reference",
		Long: `regcheck checks that an alternative register allocator produced the
same allocation as a trusted reference allocator for one function and
round. Both inputs are JSON exports of an allocation result.

The exit status reports usage, I/O and parse errors only, never the verdict.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(errOut)
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				fmt.Fprintf(errOut, "regcheck: %v\n", err)
				return err
			}

			if dText || dJSON {
				if len(args) != 1 {
					fmt.Fprintln(errOut, "regcheck: -dtext and -djson take exactly one input file")
					return ErrArgs
				}
				return doExport(args[0], cfg, out, errOut)
			}

			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			if len(args) != 2 {
				fmt.Fprintln(errOut, "regcheck: expected a reference and a candidate file")
				return ErrArgs
			}
			return doCompare(args[0], args[1], cfg, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&dText, "dtext", "", false, "Dump a result in text form")
	rootCmd.Flags().BoolVarP(&dJSON, "djson", "", false, "Dump a result in JSON form")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Read settings from a YAML file")
	rootCmd.Flags().Float64VarP(&tolerance, "tolerance", "t", compare.DefaultTolerance, "Largest total cost difference still counted as a match")
	rootCmd.Flags().StringVarP(&modeName, "mode", "m", compare.Positional.String(), "Comparison mode (positional or by-vreg)")
	rootCmd.Flags().IntVarP(&precision, "precision", "p", alloc.DefaultPrecision, "Decimals used when printing costs (raise it for -djson exports of small costs)")
	rootCmd.Flags().StringVar(&colorMode, "color", config.ColorAuto, "Color the report (auto, always or never)")
	rootCmd.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff of the two results after the report")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Increase logging verbosity")

	return rootCmd
}

// resolveConfig merges the config file (if any) with explicitly set flags
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Debugf("loaded config from %s", configPath)
	}

	applyFlagOverrides(cmd.Flags(), cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags into cfg
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("mode") {
		cfg.Mode = modeName
	}
	if flags.Changed("precision") {
		cfg.Precision = precision
	}
	if flags.Changed("color") {
		cfg.Color = colorMode
	}
	if flags.Changed("diff") {
		cfg.Diff = showDiff
	}
}

// useColor decides whether the report gets ANSI colors
func useColor(setting string, w io.Writer) bool {
	switch setting {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readResult loads one JSON export and warns about records that break the
// spill/sentinel convention
func readResult(filename string, errOut io.Writer) (*alloc.Result, error) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(errOut, "regcheck: error reading %s: %v\n", filename, err)
		return nil, err
	}
	defer f.Close()

	res, err := export.ReadJSON(f)
	if err != nil {
		fmt.Fprintf(errOut, "regcheck: %s: %v\n", filename, err)
		return nil, err
	}

	log.WithFields(log.Fields{
		"file":     filename,
		"function": res.Function,
		"round":    res.Round,
		"vregs":    res.NumVRegs(),
		"spilled":  res.NumSpilled(),
	}).Debug("loaded allocation result")

	if bad := res.Inconsistent(); len(bad) > 0 {
		log.WithField("file", filename).Warnf("%d records disagree with the spill sentinel: vregs %v", len(bad), bad)
	}
	return res, nil
}

// doExport re-exports one result (-dtext / -djson)
func doExport(filename string, cfg *config.Config, out, errOut io.Writer) error {
	res, err := readResult(filename, errOut)
	if err != nil {
		return err
	}

	opt := export.WithCostFormat(cfg.CostFormat())
	if dText {
		export.NewTextPrinter(out, opt).PrintResult(res)
	}
	if dJSON {
		if err := export.NewJSONPrinter(out, opt).PrintResult(res); err != nil {
			fmt.Fprintf(errOut, "regcheck: %v\n", err)
			return err
		}
	}
	return nil
}

// doCompare compares a candidate against a reference and prints the report
func doCompare(refFile, candFile string, cfg *config.Config, out, errOut io.Writer) error {
	ref, err := readResult(refFile, errOut)
	if err != nil {
		return err
	}
	cand, err := readResult(candFile, errOut)
	if err != nil {
		return err
	}

	if ref.Function != cand.Function || ref.Round != cand.Round {
		log.Warnf("comparing %s round %d against %s round %d", ref.Function, ref.Round, cand.Function, cand.Round)
	}

	opts := cfg.CompareOptions()
	log.WithFields(log.Fields{
		"mode":      opts.Mode,
		"tolerance": opts.Tolerance,
	}).Debug("comparing allocations")

	res := compare.Run(ref, cand, opts)

	printer := report.NewPrinter(out,
		report.WithColor(useColor(cfg.Color, out)),
		report.WithCostFormat(cfg.CostFormat()))
	printer.PrintResult(res)

	if cfg.Diff && !res.Equivalent() {
		fmt.Fprintln(out)
		if err := printer.PrintDiff(ref, cand); err != nil {
			fmt.Fprintf(errOut, "regcheck: %v\n", err)
			return err
		}
	}
	return nil
}
