package engine

import (
	"math"
	"time"

	"github.com/brackenfield/deepsquare/internal/board"
)

// UCILimits carries the parsed arguments of a UCI "go" command.
type UCILimits struct {
	Time      [2]time.Duration
	Inc       [2]time.Duration
	MovesToGo int
	MoveTime  time.Duration
	Depth     int
	Nodes     uint64
	Infinite  bool
	Ponder    bool
}

// TimeManager computes and tracks the per-move time budget: optimum is
// the target the dispatcher tries not to exceed between iterations,
// maximum is the hard deadline enforced inside the search.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time
}

func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// smallMargin is added to the increment to form the floor of the clamp
// in Init, so the allocation is never below increment + small margin.
const smallMargin = 20 * time.Millisecond

const maxPerMoveAllocation = 30 * time.Second

// estimateMovesToGo computes a moves-to-go estimate from game ply,
// front-loaded early and flat late.
func estimateMovesToGo(ply int) int {
	mtg := 45 - ply/2
	if mtg < 15 {
		mtg = 15
	}
	if mtg > 45 {
		mtg = 45
	}
	return mtg
}

// Init computes the time budget for one search, starting the clock
// immediately.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	if limits.Infinite || limits.Depth > 0 || (limits.Time[us] == 0 && limits.Inc[us] == 0) {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return
	}

	remaining := limits.Time[us]
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg <= 0 {
		mtg = estimateMovesToGo(ply)
	}

	allocation := remaining / time.Duration(mtg)
	if allocation > maxPerMoveAllocation {
		allocation = maxPerMoveAllocation
	}
	floor := inc + smallMargin
	if allocation < floor {
		allocation = floor
	}

	tm.optimumTime = allocation
	// Maximum allows an in-progress iteration to overrun the optimum
	// somewhat rather than abandon a near-complete depth, but never past
	// what's safe given the clock remaining.
	tm.maximumTime = allocation * 3
	safety := remaining * 95 / 100
	if tm.maximumTime > safety {
		tm.maximumTime = safety
	}
	if tm.maximumTime < tm.optimumTime {
		tm.maximumTime = tm.optimumTime
	}

	if tm.optimumTime < 1*time.Millisecond {
		tm.optimumTime = 1 * time.Millisecond
	}
	if tm.maximumTime < 10*time.Millisecond {
		tm.maximumTime = 10 * time.Millisecond
	}
}

func (tm *TimeManager) Elapsed() time.Duration { return time.Since(tm.startTime) }

func (tm *TimeManager) OptimumTime() time.Duration { return tm.optimumTime }

func (tm *TimeManager) MaximumTime() time.Duration { return tm.maximumTime }

// ShouldStop reports whether the hard deadline has passed.
func (tm *TimeManager) ShouldStop() bool {
	return tm.Elapsed() >= tm.maximumTime
}

// PastOptimum reports whether the dispatcher should decline to start a
// new iteration.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// AdjustForStability shrinks the optimum once the root best move has
// stopped changing across iterations.
func (tm *TimeManager) AdjustForStability(stability int) {
	switch {
	case stability >= 6:
		tm.optimumTime = tm.optimumTime * 40 / 100
	case stability >= 4:
		tm.optimumTime = tm.optimumTime * 60 / 100
	case stability >= 2:
		tm.optimumTime = tm.optimumTime * 80 / 100
	}
}

// AdjustForInstability grows the optimum, up to the maximum, when the
// root best move keeps changing.
func (tm *TimeManager) AdjustForInstability(changes int) {
	switch {
	case changes >= 4:
		tm.optimumTime = tm.optimumTime * 200 / 100
	case changes >= 2:
		tm.optimumTime = tm.optimumTime * 150 / 100
	}
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}

// aspirationHalfWidth follows a logistic schedule: wide at shallow
// depths, narrowing toward 25 as depth grows.
func aspirationHalfWidth(d int) int {
	x := -float64(d-1) / 3
	return int(math.Round(-150/(1+math.Exp(x)) + 175))
}
