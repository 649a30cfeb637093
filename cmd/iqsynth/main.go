package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jeongseonghan/iqsynth/internal/config"
	"github.com/jeongseonghan/iqsynth/internal/logx"
	"github.com/jeongseonghan/iqsynth/internal/server"
	"github.com/jeongseonghan/iqsynth/internal/synth"
)

type options struct {
	configFile string
	envFile    string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "iqsynth",
		Short:         "Baseband I/Q waveform synthesizer",
		Long:          "iqsynth generates BPSK, QPSK, 16-QAM, OFDM and LFM chirp baseband waveforms and their DAC codes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logx.SetDebug(opts.debug)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env", "", ".env file with IQSYNTH_* overrides")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newGenerateCmd(opts), newServeCmd(opts), newSchemesCmd())
	return root
}

// loadConfig resolves defaults, then the config file, then the environment.
func (o *options) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		seed    uint64
		out     string
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "generate [scheme|all]",
		Short: "Generate one scheme (or all) and write the result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				logx.Errorf("config: %v", err)
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			schemes := synth.AllSchemes()
			if len(args) == 1 && args[0] != "all" {
				s, err := synth.ParseScheme(args[0])
				if err != nil {
					return err
				}
				schemes = []synth.Scheme{s}
			}

			results, err := synth.GenerateAll(cmd.Context(), cfg, schemes)
			if err != nil {
				logx.Errorf("generate: %v", err)
				return err
			}
			for _, r := range results {
				s := r.Summary()
				logx.Infof("%s: %d samples, %d-bit %s DAC", s.Scheme, s.NumSamples, s.DACBits, s.Policy)
			}

			if out == "" {
				return writeOutput(cmd.OutOrStdout(), results, summary)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := writeOutput(f, results, summary); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random generator seed (overrides config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVarP(&summary, "summary", "s", false, "print a summary table instead of JSON")
	return cmd
}

func writeOutput(w io.Writer, results []*synth.Result, summary bool) error {
	if summary {
		return writeSummaries(w, results)
	}
	return writeResults(w, results)
}

func writeResults(w io.Writer, results []*synth.Result) error {
	enc := json.NewEncoder(w)
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

func writeSummaries(w io.Writer, results []*synth.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEME\tMOD\tFS(Hz)\tBITS\tSYMBOLS\tSAMPLES\tENERGY\tPEAK\tDAC\tCODES\tCLIPPED")
	for _, r := range results {
		s := r.Summary()
		fmt.Fprintf(tw, "%s\t%s\t%g\t%d\t%d\t%d\t%.4f\t%.4f\t%d-bit %s\t%d..%d\t%d\n",
			s.Scheme, s.Modulation, s.SampleRate, s.NumBits, s.NumSymbols, s.NumSamples,
			s.SymbolEnergy, s.Peak, s.DACBits, s.Policy, s.CodeMin, s.CodeMax, s.Clipped)
	}
	return tw.Flush()
}

func newServeCmd(opts *options) *cobra.Command {
	var addr, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generations over HTTP and push updates over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				logx.Errorf("config: %v", err)
				return err
			}
			if err := cfg.Validate(); err != nil {
				logx.Errorf("config: %v", err)
				return err
			}

			handlers := server.NewHandlers(cfg)
			logx.SetHook(handlers.Hub().BroadcastLog)
			defer logx.SetHook(nil)
			srv := server.NewServer(addr, handlers, staticDir)

			// Handle graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := srv.Start(ctx); err != nil {
				logx.Errorf("server: %v", err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory of visualization front-end files")
	return cmd
}

func newSchemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the supported schemes and their default DAC policy",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCHEME\tDAC POLICY")
			for _, s := range synth.AllSchemes() {
				fmt.Fprintf(tw, "%s\t%s\n", s, s.DefaultPolicy())
			}
			tw.Flush()
		},
	}
}
