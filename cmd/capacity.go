package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/Beastly713/steg/pkg/capacity"
	"github.com/Beastly713/steg/pkg/imageio"
	"github.com/spf13/cobra"
)

var extLen int

var capacityCmd = &cobra.Command{
	Use:   "capacity [image-path]",
	Short: "Show how much data an image can carry",
	Long: `Capacity reports the carrier's colour mode, the number of channel slots
available for embedding and the largest payload that passes both the 2x
safety margin and the framing overhead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath := args[0]

		carrier, err := imageio.Load(imagePath)
		if err != nil {
			return fmt.Errorf("failed to load image: %w", err)
		}

		capBits := capacity.Bits(carrier.Width(), carrier.Height(), carrier.Mode)

		wtr := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(wtr, "Image\tFormat\tMode\tSize\tChannels\tCapacity (Bits)\tMax Payload (Bytes)")
		fmt.Fprintln(wtr, "-----\t------\t----\t----\t--------\t---------------\t-------------------")
		fmt.Fprintf(wtr, "%s\t%s\t%s\t%dx%d\t%d\t%d\t%d\n",
			imagePath,
			carrier.Format,
			carrier.Mode,
			carrier.Width(), carrier.Height(),
			carrier.Mode.Channels(),
			capBits,
			capacity.MaxPayload(capBits, extLen),
		)
		if err := wtr.Flush(); err != nil {
			return err
		}

		if !carrier.Mode.Supported() {
			cmd.Printf("[!] Mode %s cannot carry hidden data\n", carrier.Mode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capacityCmd)

	capacityCmd.Flags().IntVar(&extLen, "ext-len", 3, "Length of the payload's file extension")
}
