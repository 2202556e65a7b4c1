// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mtwomey/a2gcr/catalog"
	"github.com/mtwomey/a2gcr/driveport"
	"github.com/mtwomey/a2gcr/helpers"
	"github.com/mtwomey/a2gcr/image"
	"github.com/mtwomey/a2gcr/retry"
)

// captureCmd drives the Track Retry Controller and Disk Image Builder over
// a live drive connection and writes out a .bin logical image, plus a .txt
// status log when the whole disk is captured.
var captureCmd = &cobra.Command{
	Use:   "capture <name> <track|all>",
	Short: "capture a disk (or one track) from a live drive",
	Long: `capture drives the controller firmware over the configured serial
port, recovering either a single track or the whole disk, and writes the
result into the working directory.

Examples:
capture myapp all    # capture every track and write myapp.bin / myapp.txt
capture myapp 17     # capture just track 17`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCapture(args); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	},
}

func init() {
	RootCmd.AddCommand(captureCmd)
}

func runCapture(args []string) error {
	if globals.Port == "" {
		return fmt.Errorf("capture requires --port")
	}
	port, err := driveport.Open(globals.Port)
	if err != nil {
		return err
	}
	defer port.Close()

	if err := port.EnterSingleTrackMode(); err != nil {
		return err
	}
	defer port.LeaveSingleTrackMode()

	name, track := args[0], args[1]
	if err := os.MkdirAll(globals.Dir, 0755); err != nil {
		return err
	}

	if track == "all" {
		result := image.Build(port, func(line string) { debugf("%s\n", line) })
		binPath := filepath.Join(globals.Dir, name+".bin")
		if err := image.WriteFile(binPath, result.Image); err != nil {
			return err
		}
		return writeStatusLog(filepath.Join(globals.Dir, name+".txt"), result)
	}

	trackNum, err := strconv.Atoi(track)
	if err != nil {
		return fmt.Errorf("capture: track must be a number or %q: %v", "all", err)
	}
	r := retry.Run(port, byte(trackNum), image.RepositionRounds)
	img := catalog.NewImage(trackNum + 1)
	img.SetTrack(trackNum, r.Image, r.MissingLogical)
	binPath := filepath.Join(globals.Dir, name+".bin")
	return image.WriteFile(binPath, img)
}

func writeStatusLog(path string, result image.Result) error {
	var buf bytes.Buffer
	for _, s := range result.Status {
		fmt.Fprintln(&buf, image.StatusLine(s.Track, s.Result))
	}
	return helpers.WriteOutput(path, buf.Bytes(), false)
}
