// Package catalog walks a decoded DOS 3.3 volume: the VTOC, the catalog
// sector chain, and the track/sector lists each directory entry points to.
// It operates on a Image rather than a bare []byte so that a sector the
// retry controller never recovered can be told apart from a sector that
// was recovered and genuinely reads as all zero.
package catalog

import (
	"sort"

	"github.com/mtwomey/a2gcr/errs"
	"github.com/mtwomey/a2gcr/gcr"
	"github.com/mtwomey/a2gcr/interleave"
)

// MaxTracks is the largest track number this package will follow a sector
// reference onto; it mirrors the bound the GCR decoder itself enforces.
const MaxTracks = 40

// TrackSector names one logical sector of a volume.
type TrackSector struct {
	Track, Sector int
}

// Image is a decoded DOS 3.3 volume: the concatenated Logical Track Images
// for every track, plus the set of sectors that were never recovered.
// Unlike a bare []byte, reading a missing sector is distinguishable from
// reading a recovered sector that happens to be all zero.
type Image struct {
	Tracks  int
	data    []byte
	missing map[TrackSector]bool
}

// NewImage allocates an empty Image with every sector marked missing.
func NewImage(tracks int) *Image {
	img := &Image{
		Tracks:  tracks,
		data:    make([]byte, tracks*interleave.TrackBytes),
		missing: make(map[TrackSector]bool, tracks*gcr.SectorsPerTrack),
	}
	for t := 0; t < tracks; t++ {
		for s := 0; s < gcr.SectorsPerTrack; s++ {
			img.missing[TrackSector{t, s}] = true
		}
	}
	return img
}

// SetTrack installs one Logical Track Image (as produced by retry.Result or
// rawtrack.Decode) at the given track, clearing the missing bit for every
// logical sector not named in missingLogical.
func (img *Image) SetTrack(track int, trackImage []byte, missingLogical []int) {
	copy(img.data[track*interleave.TrackBytes:], trackImage)
	stillMissing := make(map[int]bool, len(missingLogical))
	for _, s := range missingLogical {
		stillMissing[s] = true
	}
	for s := 0; s < gcr.SectorsPerTrack; s++ {
		img.missing[TrackSector{track, s}] = stillMissing[s]
	}
}

// Bytes returns the concatenated Logical Track Images backing this Image,
// unrecovered sectors included as zero fill. Used when writing a disk
// image out to a file; the missing-sector bookkeeping itself is not
// serialized.
func (img *Image) Bytes() []byte {
	return img.data
}

// ReadSector returns the 256-byte payload at (track, sector), and false if
// that sector was never recovered.
func (img *Image) ReadSector(track, sector int) (data []byte, ok bool) {
	if track < 0 || track >= img.Tracks || sector < 0 || sector >= gcr.SectorsPerTrack {
		return nil, false
	}
	if img.missing[TrackSector{track, sector}] {
		return nil, false
	}
	start := track*interleave.TrackBytes + sector*gcr.SectorDataBytes
	return img.data[start : start+gcr.SectorDataBytes], true
}

// VTOC is the volume table of contents at track 17, sector 0.
type VTOC struct {
	OSVersion       byte
	Volume          byte
	TracksPerDisk   byte
	SectorsPerTrack byte
	CatalogTrack    byte
	CatalogSector   byte
}

// Default VTOC location for every DOS 3.3 volume this tool targets.
const (
	VTOCTrack  = 17
	VTOCSector = 0
)

// ParseVTOC reads the VTOC sector. If it was never recovered, ParseVTOC
// returns the documented defaults (40 tracks, 16 sectors, version 0)
// alongside a VTOCAbsent error.
func ParseVTOC(img *Image) (VTOC, error) {
	data, ok := img.ReadSector(VTOCTrack, VTOCSector)
	if !ok {
		return VTOC{TracksPerDisk: 40, SectorsPerTrack: gcr.SectorsPerTrack},
			errs.VTOCAbsentf("catalog: VTOC sector (track %d, sector %d) was not recovered", VTOCTrack, VTOCSector)
	}
	return VTOC{
		OSVersion:       data[3],
		Volume:          data[6],
		TracksPerDisk:   data[0x34],
		SectorsPerTrack: data[0x35],
		CatalogTrack:    data[1],
		CatalogSector:   data[2],
	}, nil
}

// filetype byte offsets within a 35-byte catalog entry, following DOS 3.3's
// on-disk file descriptor layout.
const (
	entryTSListTrackOffset  = 0
	entryTSListSectorOffset = 1
	entryTypeOffset         = 2
	entryFilenameOffset     = 3
	entryFilenameLen        = 30
	entrySectorCountOffset  = 0x21
	entrySize               = 35

	entryDeletedTrackMarker = 0xFF
	entryNeverUsedMarker    = 0x00
)

var catalogSentinelOffsets = [9]int{0, 3, 4, 5, 6, 7, 8, 9, 10}
var catalogEntryOffsets = [7]int{11, 46, 81, 116, 151, 186, 221}

// filetype names the closed 16-entry DOS 3.3 file-type table; bit 7 of the
// on-disk type byte is the lock flag and is masked off before lookup.
var filetypeNames = map[byte]string{
	0x00: "T",
	0x01: "I",
	0x02: "A",
	0x04: "B",
	0x08: "S",
	0x10: "R",
	0x20: "AT",
	0x40: "BT",
}

// FiletypeName returns the three-or-fewer-character DOS 3.3 type name for a
// raw catalog-entry type byte (lock bit included), or "UDF" for any value
// outside the closed table.
func FiletypeName(raw byte) string {
	if name, ok := filetypeNames[raw&0x7F]; ok {
		return name
	}
	return "UDF"
}

// Entry is one decoded catalog (directory) entry.
type Entry struct {
	Filename       string
	Type           string
	Locked         bool
	LengthSectors  int
	FirstTSTrack   int
	FirstTSSector  int
}

// decodeEntry parses one 35-byte catalog entry. It returns ok=false for an
// entry slot that has never held a file (track/sector-list track byte 0x00)
// or one whose file has been deleted (0xFF); neither is reported to the
// caller as a file.
func decodeEntry(raw []byte) (Entry, bool) {
	track := raw[entryTSListTrackOffset]
	if track == entryNeverUsedMarker || track == entryDeletedTrackMarker {
		return Entry{}, false
	}
	typeByte := raw[entryTypeOffset]
	length := int(raw[entrySectorCountOffset]) | int(raw[entrySectorCountOffset+1])<<8
	return Entry{
		Filename:      decodeFilename(raw[entryFilenameOffset : entryFilenameOffset+entryFilenameLen]),
		Type:          FiletypeName(typeByte),
		Locked:        typeByte&0x80 != 0,
		LengthSectors: length,
		FirstTSTrack:  int(track),
		FirstTSSector: int(raw[entryTSListSectorOffset]),
	}, true
}

// decodeFilename masks each byte with 0x7F and interprets it as ASCII,
// trimming trailing padding spaces. A byte outside the printable ASCII
// range is a decode failure, reported with a placeholder rather than
// garbage text.
func decodeFilename(raw []byte) string {
	b := make([]byte, len(raw))
	for i, c := range raw {
		b[i] = c & 0x7F
		if b[i] < 0x20 || b[i] > 0x7E {
			return "<UNREADABLE>"
		}
	}
	i := len(b)
	for i > 0 && b[i-1] == ' ' {
		i--
	}
	return string(b[:i])
}

// WalkCatalog follows the catalog sector chain starting at (firstTrack,
// firstSector), normally the VTOC's CatalogTrack/CatalogSector, and returns
// every live entry it finds. A sentinel-byte mismatch ends the walk
// cleanly (the entries collected so far are returned with a nil error); an
// unrecovered sector, an out-of-range sector reference, or a chain that
// revisits a sector are all reported as CatalogCorrupt.
func WalkCatalog(img *Image, firstTrack, firstSector byte) ([]Entry, error) {
	var entries []Entry
	track, sector := int(firstTrack), int(firstSector)
	seen := make(map[TrackSector]bool)

	for {
		if track >= MaxTracks || sector >= gcr.SectorsPerTrack {
			return entries, errs.CatalogCorruptf("catalog: catalog sector reference (track %d, sector %d) out of range", track, sector)
		}
		ts := TrackSector{track, sector}
		if seen[ts] {
			return entries, errs.CatalogCorruptf("catalog: catalog chain revisits track %d sector %d", track, sector)
		}
		seen[ts] = true

		data, ok := img.ReadSector(track, sector)
		if !ok {
			return entries, errs.CatalogCorruptf("catalog: catalog sector (track %d, sector %d) was not recovered", track, sector)
		}

		for _, off := range catalogSentinelOffsets {
			if data[off] != 0 {
				return entries, nil
			}
		}

		for _, off := range catalogEntryOffsets {
			if entry, ok := decodeEntry(data[off : off+entrySize]); ok {
				entries = append(entries, entry)
			}
		}

		// (0,0) as a next-chain pointer means the chain ends here; as the
		// walk's starting position (e.g. a VTOC that was never recovered,
		// whose CatalogTrack/CatalogSector default to 0) it must still be
		// read and checked like any other sector, not treated as "already
		// ended" before a single sector has been examined.
		track, sector = int(data[1]), int(data[2])
		if track == 0 && sector == 0 {
			return entries, nil
		}
	}
}

// tsListSentinelOffsets and the pair-table layout mirror the catalog
// sentinel/pair conventions above, applied to track/sector list sectors.
var tsListSentinelOffsets = [3]int{0, 3, 4}

const (
	tsListNextTrackOffset  = 1
	tsListNextSectorOffset = 2
	tsListFirstPairOffset  = 12
	tsListPairStride       = 2
	tsListMaxPairs         = 122
)

// AllocationEntry names one sector belonging to a file, in the order it
// appears in the file's allocation list. IsTSList marks an entry as one of
// the file's own track/sector-list sectors rather than a data sector; the
// allocation list begins with one of these, per spec.
type AllocationEntry struct {
	Track, Sector int
	IsTSList      bool
}

// BuildAllocation walks the track/sector-list chain rooted at
// (firstTrack, firstSector) and returns the full allocation list: each
// T/S-list sector visited, interleaved with the data-sector pairs it names.
// length is the file's length in sectors from its catalog entry, which
// (as DOS 3.3 itself does) counts both data sectors and T/S-list sectors.
// When the chain ends (next pointer (0, 0)) while sectors remain
// unaccounted for, BuildAllocation reports "INVALID CONT." via a
// CatalogCorrupt error.
func BuildAllocation(img *Image, firstTrack, firstSector int, length int) ([]AllocationEntry, error) {
	var entries []AllocationEntry
	track, sector := firstTrack, firstSector
	remaining := length
	seen := make(map[TrackSector]bool)

	for {
		if track == 0 && sector == 0 {
			if remaining > 0 {
				return entries, errs.CatalogCorruptf("catalog: INVALID CONT.: track/sector list ended with %d sectors unaccounted for", remaining)
			}
			return entries, nil
		}
		if track >= MaxTracks || sector >= gcr.SectorsPerTrack {
			return entries, errs.CatalogCorruptf("catalog: track/sector list reference (track %d, sector %d) out of range", track, sector)
		}
		ts := TrackSector{track, sector}
		if seen[ts] {
			return entries, errs.CatalogCorruptf("catalog: track/sector list revisits track %d sector %d", track, sector)
		}
		seen[ts] = true

		entries = append(entries, AllocationEntry{track, sector, true})
		remaining--

		data, ok := img.ReadSector(track, sector)
		if !ok {
			return entries, errs.CatalogCorruptf("catalog: track/sector list sector (track %d, sector %d) was not recovered", track, sector)
		}
		for _, off := range tsListSentinelOffsets {
			if data[off] != 0 {
				return entries, errs.CatalogCorruptf("catalog: track/sector list sector (track %d, sector %d) failed sentinel check", track, sector)
			}
		}

		for i := 0; i < tsListMaxPairs && remaining > 0; i++ {
			off := tsListFirstPairOffset + i*tsListPairStride
			pt, ps := int(data[off]), int(data[off+1])
			if pt == 0 && ps == 0 {
				continue
			}
			entries = append(entries, AllocationEntry{pt, ps, false})
			remaining--
		}

		track, sector = int(data[tsListNextTrackOffset]), int(data[tsListNextSectorOffset])
	}
}

// ReadFile reconstructs a file's contents from its allocation map, skipping
// the T/S-list sectors interleaved into entries. A data sector that was
// never recovered is zero-filled in the returned slice, and its index
// among data sectors (not among all entries) is reported in missing.
func ReadFile(img *Image, entries []AllocationEntry) (data []byte, missing []int) {
	var dataEntries []AllocationEntry
	for _, e := range entries {
		if !e.IsTSList {
			dataEntries = append(dataEntries, e)
		}
	}
	data = make([]byte, len(dataEntries)*gcr.SectorDataBytes)
	for i, e := range dataEntries {
		sec, ok := img.ReadSector(e.Track, e.Sector)
		if !ok {
			missing = append(missing, i)
			continue
		}
		copy(data[i*gcr.SectorDataBytes:], sec)
	}
	sort.Ints(missing)
	return data, missing
}
