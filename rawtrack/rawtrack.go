// Package rawtrack is the offline counterpart to package retry: given a
// previously captured raw disk image, it runs the GCR decoder and sector
// interleaver for every track with no drive interaction and no retries.
package rawtrack

import (
	"fmt"

	"github.com/mtwomey/a2gcr/gcr"
	"github.com/mtwomey/a2gcr/interleave"
)

// TracksPerRawImage is the number of tracks a .raw capture file always
// contains.
const TracksPerRawImage = 40

// RawImageBytes is the size of a complete .raw capture file.
const RawImageBytes = TracksPerRawImage * gcr.RawTrackBytes

// TrackStatus is the per-track outcome of decoding a raw image, used to
// build the status log described in spec.md §6.
type TrackStatus struct {
	Track          int
	MissingLogical []int
}

// Ok reports whether every sector on this track decoded successfully.
func (s TrackStatus) Ok() bool {
	return len(s.MissingLogical) == 0
}

// Decode decodes every track in a raw image and returns the concatenated
// Logical Track Images alongside a per-track status. raw must be exactly
// RawImageBytes long.
func Decode(raw []byte) ([]byte, []TrackStatus, error) {
	if len(raw) != RawImageBytes {
		return nil, nil, fmt.Errorf("rawtrack: raw image is %d bytes, want %d", len(raw), RawImageBytes)
	}

	image := make([]byte, 0, TracksPerRawImage*interleave.TrackBytes)
	statuses := make([]TrackStatus, TracksPerRawImage)

	for track := 0; track < TracksPerRawImage; track++ {
		start := track * gcr.RawTrackBytes
		_, sectors, _ := gcr.DecodeTrack(raw[start : start+gcr.RawTrackBytes])
		trackImage, missing := interleave.BuildTrackImage(sectors)
		image = append(image, trackImage...)
		statuses[track] = TrackStatus{Track: track, MissingLogical: missing}
	}

	return image, statuses, nil
}

// StatusLine renders one line of the human-readable status log format from
// spec.md §6. The offline decoder makes no retries, so a corrupt-track line
// ends after the sector list and carries no list of round values.
func StatusLine(s TrackStatus) string {
	if s.Ok() {
		return fmt.Sprintf("Track: %d: ok.", s.Track)
	}
	return fmt.Sprintf("Track: %d: corrupt sectors: %v.", s.Track, s.MissingLogical)
}
