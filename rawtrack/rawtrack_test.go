package rawtrack

import (
	"testing"

	"github.com/mtwomey/a2gcr/gcr"
	"github.com/mtwomey/a2gcr/interleave"
)

func TestDecodeRejectsWrongSize(t *testing.T) {
	if _, _, err := Decode(make([]byte, 10)); err == nil {
		t.Fatal("Decode with a too-short buffer should return an error")
	}
}

func TestDecodeOfEmptyImageReportsEveryTrackCorrupt(t *testing.T) {
	image, statuses, err := Decode(make([]byte, RawImageBytes))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(image) != TracksPerRawImage*interleave.TrackBytes {
		t.Fatalf("len(image) = %d, want %d", len(image), TracksPerRawImage*interleave.TrackBytes)
	}
	if len(statuses) != TracksPerRawImage {
		t.Fatalf("len(statuses) = %d, want %d", len(statuses), TracksPerRawImage)
	}
	for _, s := range statuses {
		if s.Ok() {
			t.Errorf("track %d reported ok on an all-zero capture", s.Track)
		}
		if len(s.MissingLogical) != gcr.SectorsPerTrack {
			t.Errorf("track %d missing %d sectors, want %d", s.Track, len(s.MissingLogical), gcr.SectorsPerTrack)
		}
	}
	for _, b := range image {
		if b != 0 {
			t.Fatal("image of an all-zero capture should itself be all zero")
		}
	}
}

func TestStatusLineFormat(t *testing.T) {
	ok := StatusLine(TrackStatus{Track: 4})
	if ok != "Track: 4: ok." {
		t.Errorf("StatusLine(ok) = %q", ok)
	}
	bad := StatusLine(TrackStatus{Track: 7, MissingLogical: []int{0, 3}})
	if bad != "Track: 7: corrupt sectors: [0 3]." {
		t.Errorf("StatusLine(corrupt) = %q", bad)
	}
}
