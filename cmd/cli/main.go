package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"mcspec/adapters/export"
	"mcspec/adapters/tabular"
	"mcspec/app"
	"mcspec/domain/core"
	"mcspec/domain/modelspec"
	"mcspec/internal"
	"mcspec/internal/resolver"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mcspec",
		Short:         "Turn R-style model formulas into resolved model specifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newResolveCmd(),
		newDesignCmd(),
		newExportCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// inputFlags are shared by every command that resolves formula text.
type inputFlags struct {
	vars             []string
	refs             []string
	dataFile         string
	assumeContinuous bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.vars, "var", nil, "Variable declaration name=kind[:arg], e.g. arm=factor:3, treated=binary:0.3")
	cmd.Flags().StringArrayVar(&f.refs, "ref", nil, "Reference level override name=level")
	cmd.Flags().StringVar(&f.dataFile, "data", "", "CSV or Excel file whose columns resolve variables")
	cmd.Flags().BoolVar(&f.assumeContinuous, "assume-continuous", false, "Treat unconfigured variables as continuous")
}

// input builds assembler input for formula. The provider is nil without --data.
func (f *inputFlags) input(ctx context.Context, formula string) (app.Input, *tabular.Provider, error) {
	manual, err := resolver.ParseManualSpecs(f.vars)
	if err != nil {
		return app.Input{}, nil, err
	}
	refs, err := resolver.ParseReferenceOverrides(f.refs)
	if err != nil {
		return app.Input{}, nil, err
	}
	in := app.Input{
		Formula: formula,
		Manual:  manual,
		Options: resolver.Options{AssumeContinuous: f.assumeContinuous, ReferenceOverrides: refs},
	}
	var provider *tabular.Provider
	if f.dataFile != "" {
		ds, err := tabular.NewReader(tabular.NewProfiler(0)).Read(ctx, f.dataFile)
		if err != nil {
			return app.Input{}, nil, err
		}
		provider = tabular.NewProvider(ds)
		in.Data = provider
	}
	return in, provider, nil
}

func newResolveCmd() *cobra.Command {
	var flags inputFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve [formula]",
		Short: "Resolve a formula and print its model specification",
		Long: `Resolve a formula against manual declarations and an optional dataset.

Example: mcspec resolve "y ~ arm*dose + (1|site)" --var arm=factor:3 --var dose=continuous`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _, err := flags.input(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := app.NewAssembler(internal.DefaultLogger).Resolve(cmd.Context(), in)
			return printResolution(cmd.OutOrStdout(), res, asJSON)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ModelSpec as JSON")
	return cmd
}

func newDesignCmd() *cobra.Command {
	var dependent string
	var factors, refs, interactions []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "design",
		Short: "Build a model from factor definitions",
		Long: `Build a factorial design. Each --factor is name=levels, name=l1|l2|l3,
or just a level count for an auto-named factor.

Example: mcspec design --factor arm=control|low|high --factor 2 --interaction arm:factor1 --ref arm=control`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := designRequest(dependent, factors, refs, interactions)
			if err != nil {
				return err
			}
			res, err := app.NewDesignService(app.NewAssembler(internal.DefaultLogger)).Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResolution(cmd.OutOrStdout(), res, asJSON)
		},
	}
	cmd.Flags().StringVar(&dependent, "dependent", app.DefaultDependent, "Dependent variable name")
	cmd.Flags().StringArrayVar(&factors, "factor", nil, "Factor definition")
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "Reference level override name=level")
	cmd.Flags().StringArrayVar(&interactions, "interaction", nil, "Interaction between declared factors, a:b")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ModelSpec as JSON")
	return cmd
}

func newExportCmd() *cobra.Command {
	var flags inputFlags
	var format, size string
	var effects, corrs, iccs []string
	settings := export.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "export [formula]",
		Short: "Render a resolved model as a replication script or report",
		Long: `Render a resolved model as a simulation script (default), markdown or HTML.

Example: mcspec export "y ~ x + b + (1|school)" --var b=binary:0.4 --assume-continuous --effect x=0.3 --icc school=0.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, provider, err := flags.input(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := app.NewAssembler(internal.DefaultLogger).Resolve(cmd.Context(), in)
			if !res.OK() {
				printFailure(cmd.ErrOrStderr(), res)
				return fmt.Errorf("cannot export: %s stage failed", res.Stage)
			}

			preset, err := modelspec.ParseEffectSize(size)
			if err != nil {
				return err
			}
			model := export.Model{Spec: res.Spec, Effects: modelspec.DefaultEffects(res.Spec, preset)}
			if err := applyNumbers(effects, func(name string, v float64) error {
				model.Effects[name] = v
				return nil
			}); err != nil {
				return err
			}

			model.Correlations = make(modelspec.Correlations)
			if provider != nil {
				for k, v := range provider.Correlations(res.Spec.CorrelableVariables()) {
					model.Correlations[k] = v
				}
			}
			if err := applyNumbers(corrs, func(key string, v float64) error {
				a, b, ok := modelspec.SplitCorrKey(key)
				if !ok {
					return fmt.Errorf("correlation %q must look like a,b=value", key)
				}
				return model.Correlations.Set(a, b, v)
			}); err != nil {
				return err
			}

			model.Clusters = modelspec.ClusterConfig(nil).Carry(res.Spec)
			if err := applyNumbers(iccs, func(group string, v float64) error {
				p, ok := model.Clusters[group]
				if !ok {
					return fmt.Errorf("no cluster %q in the model", group)
				}
				p.ICC = v
				model.Clusters[group] = p
				return nil
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "markdown", "md":
				_, err = io.WriteString(out, export.Markdown(model))
			case "html":
				_, err = out.Write(export.HTML(model))
			case "script":
				var script string
				if flags.dataFile != "" && settings.DataFile == "" {
					settings.DataFile = flags.dataFile
				}
				script, err = export.Script(model, settings)
				if err == nil {
					_, err = io.WriteString(out, script)
				}
			default:
				err = fmt.Errorf("unknown format %q (script, markdown, html)", format)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "script", "Output format: script, markdown or html")
	cmd.Flags().StringVar(&size, "size", "medium", "Default effect size preset: small, medium or large")
	cmd.Flags().StringArrayVar(&effects, "effect", nil, "Effect override term=value")
	cmd.Flags().StringArrayVar(&corrs, "corr", nil, "Correlation a,b=value")
	cmd.Flags().StringArrayVar(&iccs, "icc", nil, "Cluster ICC group=value")
	cmd.Flags().IntVar(&settings.SampleSize, "sample-size", settings.SampleSize, "Sample size for find_power")
	cmd.Flags().Float64Var(&settings.Alpha, "alpha", settings.Alpha, "Significance level")
	cmd.Flags().Float64Var(&settings.TargetPower, "power", settings.TargetPower, "Target power in percent")
	cmd.Flags().IntVar(&settings.Simulations, "simulations", settings.Simulations, "Number of simulations")
	cmd.Flags().IntVar(&settings.Seed, "seed", settings.Seed, "Random seed")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var flags inputFlags
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Resolve formulas typed on stdin, one per line, as they settle",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			live := app.NewLiveResolver(app.NewAssembler(internal.DefaultLogger), debounce, func(res app.Resolution) {
				if res.State == app.StateEmpty {
					return
				}
				fmt.Fprintln(out, res.Summary())
			})
			defer live.Close()

			var last app.Input
			seen := false
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				in, _, err := flags.input(cmd.Context(), scanner.Text())
				if err != nil {
					return err
				}
				live.Submit(in)
				last, seen = in, true
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if seen {
				live.Flush(last)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", app.DefaultDebounce, "Quiet period before resolving")
	return cmd
}

func printResolution(w io.Writer, res app.Resolution, asJSON bool) error {
	switch res.State {
	case app.StateEmpty:
		fmt.Fprintln(w, "No formula")
		return nil
	case app.StateFailed:
		printFailure(w, res)
		return fmt.Errorf("%s stage failed", res.Stage)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Spec)
	}
	fmt.Fprintln(w, res.Summary())
	fmt.Fprintln(w, "  Terms: "+strings.Join(res.Spec.TermNames(), ", "))
	return nil
}

func printFailure(w io.Writer, res app.Resolution) {
	var pe *core.ParseError
	if errors.As(res.Err, &pe) {
		fmt.Fprintln(w, pe.Hint(res.Input))
	}
	fmt.Fprintln(w, res.Summary())
}

// applyNumbers parses key=value pairs and hands each to set.
func applyNumbers(pairs []string, set func(key string, v float64) error) error {
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("%q must look like key=value", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%q: %w", p, err)
		}
		if err := set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// designRequest parses the design command's flags.
func designRequest(dependent string, factors, refs, interactions []string) (app.DesignRequest, error) {
	req := app.DesignRequest{Dependent: dependent, Interactions: interactions}
	overrides, err := resolver.ParseReferenceOverrides(refs)
	if err != nil {
		return req, err
	}
	for _, def := range factors {
		name, arg, ok := strings.Cut(def, "=")
		if !ok {
			name, arg = "", def
		}
		f := app.FactorDef{Name: strings.TrimSpace(name)}
		arg = strings.TrimSpace(arg)
		if n, err := strconv.Atoi(arg); err == nil {
			f.Levels = n
		} else {
			for _, l := range strings.Split(arg, "|") {
				if l = strings.TrimSpace(l); l != "" {
					f.LevelLabels = append(f.LevelLabels, l)
				}
			}
		}
		f.Reference = overrides[f.Name]
		req.Factors = append(req.Factors, f)
	}
	return req, nil
}
