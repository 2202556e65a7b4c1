// Package image implements the Disk Image Builder: it drives the track
// retry controller across a whole disk and assembles the result into a
// catalog.Image, ready for the VTOC/Catalog Walker or for writing to a
// host file.
package image

import (
	"fmt"

	"github.com/mtwomey/a2gcr/catalog"
	"github.com/mtwomey/a2gcr/helpers"
	"github.com/mtwomey/a2gcr/retry"
)

// DefaultTracks is used when the VTOC couldn't be read or doesn't claim to
// be a DOS 3.3 volume (OS version 3).
const DefaultTracks = 35

// RepositionRounds is the R value (motor-reposition rounds) the builder
// asks the retry controller for on every track.
const RepositionRounds = 3

// TrackResult pairs a track number with its retry outcome, for status
// reporting.
type TrackResult struct {
	Track int
	retry.Result
}

// Result is the outcome of building a whole-disk image.
type Result struct {
	Tracks int
	Image  *catalog.Image
	Status []TrackResult
}

// StatusLine renders one line of the status-log format from spec.md §6:
// "Track: <n>: ok." when every sector was recovered, otherwise
// "Track: <n>: corrupt sectors: [<list>]. List of round values: [<list>]."
func StatusLine(track int, result retry.Result) string {
	if len(result.MissingLogical) == 0 {
		return fmt.Sprintf("Track: %d: ok.", track)
	}
	return fmt.Sprintf("Track: %d: corrupt sectors: %v. List of round values: %v.", track, result.MissingLogical, result.SectorTimings)
}

// Build drives the track retry controller over port for every track of the
// disk, tracks 0..N-1 with N taken from the VTOC (track 17, which is
// captured first so N is known before the rest of the sweep begins).
// onStatus, if non-nil, is called once per track with its StatusLine.
func Build(port retry.Port, onStatus func(line string)) Result {
	probe := retry.Run(port, catalog.VTOCTrack, RepositionRounds)
	probeImage := catalog.NewImage(catalog.VTOCTrack + 1)
	probeImage.SetTrack(catalog.VTOCTrack, probe.Image, probe.MissingLogical)

	tracks := DefaultTracks
	if vtoc, err := catalog.ParseVTOC(probeImage); err == nil && vtoc.OSVersion == 3 {
		tracks = int(vtoc.TracksPerDisk)
	}

	img := catalog.NewImage(tracks)
	statuses := make([]TrackResult, 0, tracks)

	for track := 0; track < tracks; track++ {
		result := probe
		if track != catalog.VTOCTrack {
			result = retry.Run(port, byte(track), RepositionRounds)
		}
		img.SetTrack(track, result.Image, result.MissingLogical)
		statuses = append(statuses, TrackResult{Track: track, Result: result})
		if onStatus != nil {
			onStatus(StatusLine(track, result))
		}
	}

	return Result{Tracks: tracks, Image: img, Status: statuses}
}

// WriteFile writes img's bytes to path, refusing to overwrite an existing
// file.
func WriteFile(path string, img *catalog.Image) error {
	return helpers.WriteOutput(path, img.Bytes(), false)
}
