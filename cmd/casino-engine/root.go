package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MJE43/entropy-casino-engine/internal/config"
	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "casino-engine",
		Short:         "Deterministic entropy-to-outcome engine for mines, plinko, roulette and wheel",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newProcessCmd(opts),
		newVerifyCmd(opts),
		newScanCmd(opts),
		newAnalyzeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load(logOut io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	level, ok := logger.ParseLevel(cfg.Log.Level)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}

	logger.Init(&logger.Options{
		Level:      level,
		Writer:     logOut,
		TimeFormat: cfg.Log.TimeFormat,
	})
	o.cfg = cfg
	return nil
}

// gameFlags are shared by the commands that address one game configuration.
type gameFlags struct {
	game    string
	entropy string
	params  map[string]string
}

func (f *gameFlags) register(cmd *cobra.Command, withEntropy bool) {
	cmd.Flags().StringVarP(&f.game, "game", "g", "", "game: mines, plinko, roulette or wheel")
	cmd.Flags().StringToStringVarP(&f.params, "param", "p", nil, "game parameter as key=value (mineCount, rows, risk, segments)")
	_ = cmd.MarkFlagRequired("game")
	if withEntropy {
		cmd.Flags().StringVarP(&f.entropy, "entropy", "e", "", "entropy value, decimal or 0x-prefixed hex")
	}
}

func (f *gameFlags) paramMap() map[string]any {
	params := make(map[string]any, len(f.params))
	for k, v := range f.params {
		params[k] = v
	}
	return params
}

func (f *gameFlags) entropyValue() (entropy.Value, error) {
	if strings.TrimSpace(f.entropy) == "" {
		return entropy.Zero, errors.New("--entropy is required")
	}
	return entropy.Parse(f.entropy)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput returns the contents of path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
