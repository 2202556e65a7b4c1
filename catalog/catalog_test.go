package catalog

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/mtwomey/a2gcr/errs"
	"github.com/mtwomey/a2gcr/gcr"
	"github.com/mtwomey/a2gcr/interleave"
)

func blankImage(tracks int) *Image {
	img := NewImage(tracks)
	for t := 0; t < tracks; t++ {
		img.SetTrack(t, make([]byte, interleave.TrackBytes), nil)
	}
	return img
}

func TestParseVTOCReportsAbsentWhenSectorNotRecovered(t *testing.T) {
	img := NewImage(40) // every sector starts out missing

	v, err := ParseVTOC(img)
	if !errs.IsVTOCAbsent(err) {
		t.Fatalf("ParseVTOC error = %v, want VTOCAbsent", err)
	}
	if v.TracksPerDisk != 40 || v.SectorsPerTrack != gcr.SectorsPerTrack || v.OSVersion != 0 {
		t.Errorf("ParseVTOC defaults = %+v, want {40 16 0 ...}", v)
	}
}

func TestParseVTOCReadsDeclaredFields(t *testing.T) {
	img := blankImage(40)
	vtoc := make([]byte, gcr.SectorDataBytes)
	vtoc[1] = 17
	vtoc[2] = 0
	vtoc[3] = 3
	vtoc[6] = 254
	vtoc[0x34] = 35
	vtoc[0x35] = 16
	writeSector(img, VTOCTrack, VTOCSector, vtoc)

	v, err := ParseVTOC(img)
	if err != nil {
		t.Fatalf("ParseVTOC: %v", err)
	}
	want := VTOC{OSVersion: 3, Volume: 254, TracksPerDisk: 35, SectorsPerTrack: 16, CatalogTrack: 17, CatalogSector: 0}
	if v != want {
		t.Errorf("ParseVTOC differs: %s", strings.Join(pretty.Diff(want, v), "; "))
	}
}

// writeSector pokes a sector's worth of bytes directly into an Image's
// backing store and clears its missing bit, bypassing SetTrack's per-track
// granularity for tests that only care about a single sector.
func writeSector(img *Image, track, sector int, data []byte) {
	img.missing[TrackSector{track, sector}] = false
	start := track*interleave.TrackBytes + sector*gcr.SectorDataBytes
	copy(img.data[start:], data)
}

func encodeFilename(name string) []byte {
	b := make([]byte, entryFilenameLen)
	for i := range b {
		b[i] = ' ' | 0x80
	}
	for i := 0; i < len(name) && i < entryFilenameLen; i++ {
		b[i] = name[i] | 0x80
	}
	return b
}

// buildCatalogEntry writes one 35-byte directory entry at offset off of
// sector, matching the layout decodeEntry expects.
func buildCatalogEntry(sector []byte, off int, tsTrack, tsSector int, filetype byte, name string, length int) {
	sector[off+entryTSListTrackOffset] = byte(tsTrack)
	sector[off+entryTSListSectorOffset] = byte(tsSector)
	sector[off+entryTypeOffset] = filetype
	copy(sector[off+entryFilenameOffset:], encodeFilename(name))
	sector[off+entrySectorCountOffset] = byte(length)
	sector[off+entrySectorCountOffset+1] = byte(length >> 8)
}

// TestCatalogWalkSingleHelloEntry is the scenario from spec.md §8: a
// directory track with a single catalog sector listing one entry
// (filename="HELLO", type=0x04, length=3, TS=(18,0)), which should yield
// exactly that entry and an allocation list beginning with (18, 0).
func TestCatalogWalkSingleHelloEntry(t *testing.T) {
	img := blankImage(40)

	catSector := make([]byte, gcr.SectorDataBytes)
	buildCatalogEntry(catSector, catalogEntryOffsets[0], 18, 0, 0x04, "HELLO", 3)
	writeSector(img, 17, 1, catSector)

	entries, err := WalkCatalog(img, 17, 1)
	if err != nil {
		t.Fatalf("WalkCatalog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	got := entries[0]
	wantEntry := Entry{Filename: "HELLO", Type: "B", LengthSectors: 3, FirstTSTrack: 18, FirstTSSector: 0}
	if got != wantEntry {
		t.Fatalf("entries[0] differs: %s", strings.Join(pretty.Diff(wantEntry, got), "; "))
	}

	tsSector := make([]byte, gcr.SectorDataBytes)
	tsSector[12], tsSector[13] = 19, 0
	tsSector[14], tsSector[15] = 19, 1
	writeSector(img, 18, 0, tsSector)
	writeSector(img, 19, 0, make([]byte, gcr.SectorDataBytes))
	writeSector(img, 19, 1, make([]byte, gcr.SectorDataBytes))

	alloc, err := BuildAllocation(img, got.FirstTSTrack, got.FirstTSSector, got.LengthSectors)
	if err != nil {
		t.Fatalf("BuildAllocation: %v", err)
	}
	if len(alloc) == 0 || alloc[0].Track != 18 || alloc[0].Sector != 0 || !alloc[0].IsTSList {
		t.Fatalf("allocation list does not begin with the T/S-list sector: %+v", alloc)
	}
}

func TestCatalogWalkStopsCleanlyOnSentinelMismatch(t *testing.T) {
	img := blankImage(40)
	bad := make([]byte, gcr.SectorDataBytes)
	bad[5] = 0xFF // corrupt one of the required-zero sentinel bytes
	writeSector(img, 17, 1, bad)

	entries, err := WalkCatalog(img, 17, 1)
	if err != nil {
		t.Fatalf("WalkCatalog should terminate cleanly, got error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}

func TestCatalogWalkReportsCorruptWhenSectorMissing(t *testing.T) {
	img := NewImage(40) // track 17 sector 1 stays missing
	_, err := WalkCatalog(img, 17, 1)
	if !errs.IsCatalogCorrupt(err) {
		t.Fatalf("WalkCatalog error = %v, want CatalogCorrupt", err)
	}
}

func TestBuildAllocationReportsInvalidContinuation(t *testing.T) {
	img := blankImage(40)
	tsSector := make([]byte, gcr.SectorDataBytes)
	// No data pairs at all, chain ends, but length claims 3 sectors total.
	writeSector(img, 18, 0, tsSector)

	_, err := BuildAllocation(img, 18, 0, 3)
	if !errs.IsCatalogCorrupt(err) {
		t.Fatalf("BuildAllocation error = %v, want CatalogCorrupt (INVALID CONT.)", err)
	}
}

// TestCatalogWalkTerminatesOnAnyInput is the universal termination
// property from spec.md §8: the walker always terminates, bounded by the
// set of reachable sectors on a 40x16 disk, even when sector chains are
// adversarially self-referential.
func TestCatalogWalkTerminatesOnAnyInput(t *testing.T) {
	img := blankImage(40)
	for track := 0; track < 40; track++ {
		for sector := 0; sector < gcr.SectorsPerTrack; sector++ {
			data := make([]byte, gcr.SectorDataBytes)
			// Every sector points to its own successor mod (40, 16), except
			// (0,0) is excluded as a possible successor since it's the
			// reserved chain-terminator value: wrapping into it would end
			// the walk cleanly instead of exercising the revisit guard.
			nextTrack := byte((track + 1) % 40)
			nextSector := byte((sector + 1) % gcr.SectorsPerTrack)
			if nextTrack == 0 && nextSector == 0 {
				nextTrack, nextSector = 1, 0
			}
			data[1] = nextTrack
			data[2] = nextSector
			writeSector(img, track, sector, data)
		}
	}

	// WalkCatalog's own seen-sector bookkeeping bounds this to at most
	// 40*16 iterations; reaching this return at all is the property under
	// test (an infinite loop here would hang the test process). Starting
	// away from (0,0) means the chain can only end via a genuine revisit,
	// not by wrapping into the reserved terminator value.
	entries, err := WalkCatalog(img, 5, 5)
	if !errs.IsCatalogCorrupt(err) {
		t.Fatalf("WalkCatalog error = %v, want CatalogCorrupt (revisited chain)", err)
	}
	_ = entries
}
