// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtwomey/a2gcr/helpers"
	"github.com/mtwomey/a2gcr/rawtrack"
)

// decodeCmd runs the offline Raw Track Decoder against a previously
// captured .raw file, with no drive interaction.
var decodeCmd = &cobra.Command{
	Use:   "decode <raw-image> <out.bin>",
	Short: "decode a previously captured .raw file into a logical disk image",
	Long: `decode reads a 286720-byte raw capture file (40 tracks of 7168
bytes each) and runs the GCR decoder and sector interleaver against every
track with no retries, writing the resulting logical disk image.

Examples:
decode capture.raw disk.bin`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDecode(args); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	},
}

func init() {
	RootCmd.AddCommand(decodeCmd)
}

func runDecode(args []string) error {
	rawPath, outPath := args[0], args[1]

	raw, err := helpers.FileContentsOrStdIn(rawPath)
	if err != nil {
		return err
	}

	image, statuses, err := rawtrack.Decode(raw)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		line := rawtrack.StatusLine(s)
		if globals.Debug > 0 || !s.Ok() {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	return helpers.WriteOutput(outPath, image, false)
}
