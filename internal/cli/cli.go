package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/specialistvlad/gpfit/internal/app"
	"github.com/specialistvlad/gpfit/internal/errdefs"
	"github.com/specialistvlad/gpfit/internal/fit"
	"github.com/specialistvlad/gpfit/internal/hcl_adapter"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	ExitFailure       = 1
	ExitUsage         = 2
	ExitConfiguration = 3
	ExitNumerical     = 4
)

type globalFlags struct {
	logLevel  string
	logFormat string
	workers   int
}

// NewRootCommand builds the gpfit command tree. Command output goes to outW,
// logs go to logW.
func NewRootCommand(outW, logW io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "gpfit",
		Short: "Transit and radial-velocity fitting with Gaussian-process noise",
		Long: `gpfit evaluates the joint log-likelihood of photometry and radial-velocity
datasets under a deterministic planetary signal plus optional per-instrument
Gaussian-process noise. Priors and data are declared in HCL fit files.`,
		Example: `  # Validate a fit file and show the free-parameter layout
  $ gpfit check fit.hcl

  # Log-likelihood at an explicit parameter vector
  $ gpfit loglike fit.hcl --values 3.1,0.012,1.5

  # Predict on a time grid
  $ gpfit predict fit.hcl --instrument TESS --from 0 --to 10 --n 500`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&g.workers, "workers", 1, "Number of concurrent likelihood workers.")

	root.AddCommand(
		newCheckCmd(g, outW, logW),
		newLogLikeCmd(g, outW, logW),
		newPredictCmd(g, outW, logW),
		newFitCmd(g, outW, logW),
	)
	return root
}

// Execute runs the command tree with args and maps failures to ExitError.
func Execute(ctx context.Context, outW, logW io.Writer, args []string) error {
	if args == nil {
		// cobra reads os.Args when handed nil.
		args = []string{}
	}
	root := NewRootCommand(outW, logW)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return toExitError(err)
	}
	return nil
}

func toExitError(err error) error {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case errdefs.IsConfiguration(err):
		return &ExitError{Code: ExitConfiguration, Message: err.Error()}
	case errdefs.IsNumerical(err):
		return &ExitError{Code: ExitNumerical, Message: err.Error()}
	default:
		return &ExitError{Code: ExitFailure, Message: err.Error()}
	}
}

// usageArgs reports positional-argument violations as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Message: err.Error()}
		}
		return nil
	}
}

func (g *globalFlags) newApp(outW, logW io.Writer, paths []string) (*app.App, error) {
	cfg, err := app.NewConfig(app.Config{
		FitPaths:  paths,
		LogFormat: strings.ToLower(g.logFormat),
		LogLevel:  strings.ToLower(g.logLevel),
		Workers:   g.workers,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return app.NewApp(outW, logW, cfg, hcl_adapter.NewLoader())
}

func newCheckCmd(g *globalFlags, outW, logW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check FIT_PATH...",
		Short: "validate fit files and print the model layout",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(outW, logW, args)
			if err != nil {
				return err
			}
			return a.Check(cmd.Context())
		},
	}
}

func newLogLikeCmd(g *globalFlags, outW, logW io.Writer) *cobra.Command {
	var (
		values    []float64
		drawsPath string
	)
	cmd := &cobra.Command{
		Use:   "loglike FIT_PATH...",
		Short: "evaluate the joint log-likelihood",
		Long: `Evaluate the joint log-likelihood at one parameter vector, or at every row
of a draws file (one whitespace-separated vector per line) using --workers
concurrent evaluators. Without --values the prior medians are used.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if drawsPath != "" && cmd.Flags().Changed("values") {
				return &ExitError{Code: ExitUsage, Message: "--values and --draws are mutually exclusive"}
			}
			a, err := g.newApp(outW, logW, args)
			if err != nil {
				return err
			}
			if drawsPath != "" {
				draws, err := readRows(drawsPath)
				if err != nil {
					return err
				}
				_, err = a.LogLikelihoodBatch(cmd.Context(), draws)
				return err
			}
			if !cmd.Flags().Changed("values") {
				values = nil
			}
			_, err = a.LogLikelihood(cmd.Context(), values)
			return err
		},
	}
	cmd.Flags().Float64SliceVar(&values, "values", nil, "Comma-separated free-parameter vector, in declaration order.")
	cmd.Flags().StringVar(&drawsPath, "draws", "", "File with one parameter vector per line.")
	return cmd
}

func newPredictCmd(g *globalFlags, outW, logW io.Writer) *cobra.Command {
	var (
		instrument string
		from, to   float64
		n          int
		values     []float64
		pointsPath string
	)
	cmd := &cobra.Command{
		Use:   "predict FIT_PATH...",
		Short: "evaluate the model decomposition on a time grid or at given points",
		Long: `Evaluate the deterministic, GP and total model of one instrument on an even
time grid, or at the rows of a points file. Each points row holds the time,
then the GP regressor when the instrument's GP runs on regressors, then one
column per linear-model regressor. Instruments with GP regressors or a linear
model need --points.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if instrument == "" {
				return &ExitError{Code: ExitUsage, Message: "--instrument is required"}
			}
			f := cmd.Flags()
			if pointsPath != "" && (f.Changed("from") || f.Changed("to") || f.Changed("n")) {
				return &ExitError{Code: ExitUsage, Message: "--points cannot be combined with --from, --to or --n"}
			}
			var times []float64
			if pointsPath == "" {
				var err error
				if times, err = grid(from, to, n); err != nil {
					return &ExitError{Code: ExitUsage, Message: err.Error()}
				}
			}
			a, err := g.newApp(outW, logW, args)
			if err != nil {
				return err
			}
			if !f.Changed("values") {
				values = nil
			}

			req := app.PredictRequest{Instrument: instrument, Times: times}
			if pointsPath != "" {
				rows, err := readRows(pointsPath)
				if err != nil {
					return err
				}
				if req, err = a.PointsFromRows(instrument, rows); err != nil {
					return err
				}
			}
			req.Values = values
			return a.Predict(cmd.Context(), req)
		},
	}
	f := cmd.Flags()
	f.StringVar(&instrument, "instrument", "", "Instrument to predict for.")
	f.Float64Var(&from, "from", 0, "First time of the grid.")
	f.Float64Var(&to, "to", 1, "Last time of the grid.")
	f.IntVar(&n, "n", 100, "Number of grid points.")
	f.Float64SliceVar(&values, "values", nil, "Comma-separated free-parameter vector, in declaration order.")
	f.StringVar(&pointsPath, "points", "", "File with one target point per line: time [regressor] [linear regressors...].")
	return cmd
}

func newFitCmd(g *globalFlags, outW, logW io.Writer) *cobra.Command {
	var (
		maxEvals int
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fit FIT_PATH...",
		Short: "find the maximum-likelihood parameter vector",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(outW, logW, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			_, err = a.Fit(ctx, fit.Options{MaxEvaluations: maxEvals})
			return err
		},
	}
	cmd.Flags().IntVar(&maxEvals, "max-evals", 0, "Maximum likelihood evaluations. 0 means 2000 per free parameter.")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Optimizer wall-clock limit. 0 means none.")
	return cmd
}

// grid returns n evenly spaced points from from to to inclusive.
func grid(from, to float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("--n must be positive, got %d", n)
	}
	if n == 1 {
		return []float64{from}, nil
	}
	if to < from {
		return nil, fmt.Errorf("--to (%g) is before --from (%g)", to, from)
	}
	out := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out, nil
}
