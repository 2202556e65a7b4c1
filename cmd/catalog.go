// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtwomey/a2gcr/catalog"
	"github.com/mtwomey/a2gcr/interleave"
)

var catalogLong bool

// catalogCmd runs the VTOC/Catalog Walker against a logical disk image and
// prints the short or long catalog form.
var catalogCmd = &cobra.Command{
	Use:     "catalog <disk-image>",
	Aliases: []string{"cat", "ls"},
	Short:   "print a list of files on a recovered disk image",
	Long:    `Catalog a recovered .bin logical disk image.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCatalog(args); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogLong, "long", false, "dump each file's track/sector allocation list too")
	RootCmd.AddCommand(catalogCmd)
}

func runCatalog(args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(raw)%interleave.TrackBytes != 0 {
		return fmt.Errorf("catalog: %s is not a whole number of tracks", path)
	}
	tracks := len(raw) / interleave.TrackBytes

	img := catalog.NewImage(tracks)
	for t := 0; t < tracks; t++ {
		img.SetTrack(t, raw[t*interleave.TrackBytes:(t+1)*interleave.TrackBytes], nil)
	}

	vtoc, err := catalog.ParseVTOC(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
	}

	entries, err := catalog.WalkCatalog(img, vtoc.CatalogTrack, vtoc.CatalogSector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
	}

	fmt.Println(path)
	for _, e := range entries {
		fmt.Printf("%s %03d %s\n", e.Type, e.LengthSectors, e.Filename)
		if catalogLong {
			printAllocation(img, e)
		}
	}
	return nil
}

func printAllocation(img *catalog.Image, e catalog.Entry) {
	alloc, err := catalog.BuildAllocation(img, e.FirstTSTrack, e.FirstTSSector, e.LengthSectors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", e.Filename, err)
	}
	for i := 0; i < len(alloc); i += 10 {
		end := i + 10
		if end > len(alloc) {
			end = len(alloc)
		}
		fmt.Print("  ")
		for _, a := range alloc[i:end] {
			fmt.Printf("(%d,%d) ", a.Track, a.Sector)
		}
		fmt.Println()
	}
}
