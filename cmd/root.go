package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Beastly713/steg/pkg/stego"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	carrierPath string
	payloadPath string
	outputDir   string
	verbose     bool

	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "steg -c <carrier> [-p <payload>]",
	Short: "Hide files inside lossless images",
	Long: `Steg image hiding/extraction tool.

To hide a file you must specify a carrier (image) and a payload.
  steg -c <carrier> -p <payload>

To extract a payload from a carrier, simply omit the payload argument.
  steg -c <carrier>

Supported carriers: PNG, TIFF and BMP in L, RGB or RGBA mode (ICO can be read).
The stego image is written as new.<format>; extracted payloads are written
as hidden_file.<extension>. Existing files are overwritten.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr(), verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if carrierPath == "" {
			cmd.Println("[!] No carrier supplied.")
			return cmd.Usage()
		}

		engine := stego.New(stego.Options{OutputDir: outputDir, Logger: logger})

		if payloadPath == "" {
			res, err := engine.Extract(carrierPath)
			if err != nil {
				return err
			}
			cmd.Printf("[+] Successfully extracted message: %s\n", res.OutputPath)
			return nil
		}

		res, err := engine.Hide(carrierPath, payloadPath)
		if err != nil {
			return err
		}
		cmd.Printf("[+] %s created\n", res.OutputPath)
		return nil
	},
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		os.Exit(1)
	}
}

// GetRootCmd exposes the command tree to end-to-end tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.Flags().StringVarP(&carrierPath, "carrier", "c", "", "Path to the carrier file")
	rootCmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "Path to the payload file (omit to extract)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "dir", "d", ".", "Directory for new.<format> and hidden_file.<ext>")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every processing step")
}
