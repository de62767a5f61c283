// Command ledgergrid is a batch driver for the ledgergrid formula engine:
// it loads a worksheet definition from a config file, recalculates it, and
// either prints the requested cell values or dumps the dependency graph as
// a JSON snapshot.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	spreadsheet "github.com/vogtb/ledgergrid"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "ledgergrid",
		Short: "Batch spreadsheet formula evaluation",
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "workbook config file (json/yaml/toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEvalCommand())
	root.AddCommand(newSnapshotCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workbookConfig is the shape loaded from --config: a single worksheet's
// name, its cell contents (values or "=" formulas), and the list of cells
// to print after recalculation.
type workbookConfig struct {
	Worksheet string            `mapstructure:"worksheet"`
	Cells     map[string]string `mapstructure:"cells"`
	Print     []string          `mapstructure:"print"`
}

func loadConfig() (*workbookConfig, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("--config is required")
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg workbookConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Worksheet == "" {
		cfg.Worksheet = "Sheet1"
	}
	return &cfg, nil
}

func buildSheet(cfg *workbookConfig, logger zerolog.Logger) (*spreadsheet.Spreadsheet, error) {
	sheet := spreadsheet.NewSpreadsheet()
	sheet.SetLogger(logger)

	if err := sheet.AddWorksheet(cfg.Worksheet); err != nil {
		return nil, fmt.Errorf("adding worksheet: %w", err)
	}

	for address, raw := range cfg.Cells {
		full := cfg.Worksheet + "!" + address
		if err := sheet.Set(full, raw); err != nil {
			return nil, fmt.Errorf("setting %s: %w", address, err)
		}
	}

	if err := sheet.Recompute(context.Background(), nil); err != nil {
		return nil, fmt.Errorf("calculating: %w", err)
	}
	return sheet, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func newEvalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "Recalculate a workbook and print the requested cells",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sheet, err := buildSheet(cfg, newLogger())
			if err != nil {
				return err
			}
			for _, address := range cfg.Print {
				full := cfg.Worksheet + "!" + address
				value, err := sheet.Get(full)
				if err != nil {
					return fmt.Errorf("reading %s: %w", address, err)
				}
				fmt.Printf("%s = %v\n", address, value)
			}
			return nil
		},
	}
}

func newSnapshotCommand() *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Recalculate a workbook and write its dependency graph as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sheet, err := buildSheet(cfg, newLogger())
			if err != nil {
				return err
			}
			data, err := sheet.ExportDependencySnapshot()
			if err != nil {
				return fmt.Errorf("exporting snapshot: %w", err)
			}

			var pretty []any
			if err := json.Unmarshal(data, &pretty); err == nil {
				data, _ = json.MarshalIndent(pretty, "", "  ")
			}

			if outFile == "" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(outFile, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write snapshot to this file instead of stdout")
	return cmd
}
