// Package retry implements the track-level retry controller: it drives
// repeated captures of a single track through a Drive Port, varying a
// timing parameter across attempts and triggering motor repositioning,
// until every sector is recovered or the attempt budget is exhausted.
package retry

import (
	"sort"

	"github.com/mtwomey/a2gcr/driveport"
	"github.com/mtwomey/a2gcr/gcr"
	"github.com/mtwomey/a2gcr/interleave"
)

// Port is the subset of *driveport.Port the controller needs. Tests supply
// a fake implementation that never touches a real serial device.
type Port interface {
	Capture(track byte, timing byte) ([]byte, error)
}

// Schedule is the fixed 16-value timing-parameter rotation the controller
// cycles through across attempts.
var Schedule = [16]int{32, 32, 32, 32, 34, 34, 36, 36, 38, 38, 30, 30, 28, 28, 26, 26}

const (
	fastModeAttempts  = 8
	attemptsPerRound  = 16
	sectorsPerTrack   = gcr.SectorsPerTrack
)

// Result is what one call to Run produces.
type Result struct {
	RecoveredCount int
	// MissingLogical is the sorted list of logical sector indices never
	// recovered.
	MissingLogical []int
	// SectorTimings records, in the order sectors were first recovered, the
	// timing-parameter value used on the attempt that recovered them.
	SectorTimings []int
	// Image is always exactly interleave.TrackBytes long.
	Image []byte
	// Repositions counts how many motor-reposition commands were issued
	// (diagnostic; the schedule's own adaptive-timing narrative doesn't
	// need this, but a status log benefits from it).
	Repositions int
}

// Run captures track repeatedly via port until all 16 physical sectors are
// recovered or the attempt budget tied to r is exhausted. r is the number of
// motor-repositioning cycles allowed; r == 0 selects fast mode (8 attempts,
// no repositioning).
func Run(port Port, track byte, r int) Result {
	maxAttempts := fastModeAttempts
	if r > 0 {
		maxAttempts = attemptsPerRound * r
	}

	sectors := make(gcr.PhysicalSectorMap)
	var timings []int
	var repositions int

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 && attempt%attemptsPerRound == 0 && len(sectors) < sectorsPerTrack && r > 0 {
			port.Capture(track, driveport.RepositionTiming)
			repositions++
		}

		timing := Schedule[attempt%attemptsPerRound]
		raw, err := port.Capture(track, byte(timing))
		if err != nil || raw == nil {
			continue
		}

		readTrack, found, _ := gcr.DecodeTrack(raw)
		if readTrack != track {
			continue
		}
		for sector, payload := range found {
			if _, already := sectors[sector]; already {
				continue
			}
			sectors[sector] = payload
			timings = append(timings, timing)
		}

		if len(sectors) == sectorsPerTrack {
			break
		}
	}

	image, missingLogical := interleave.BuildTrackImage(sectors)
	sort.Ints(missingLogical)

	return Result{
		RecoveredCount: len(sectors),
		MissingLogical: missingLogical,
		SectorTimings:  timings,
		Image:          image,
		Repositions:    repositions,
	}
}
