// Package uci implements the Universal Chess Interface protocol loop:
// a line-oriented stdin/stdout command reader driving one engine.Engine.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/brackenfield/deepsquare/internal/board"
	"github.com/brackenfield/deepsquare/internal/engine"
)

// UCI holds the protocol handler's mutable session state: the current
// position and the one engine it drives.
type UCI struct {
	eng      *engine.Engine
	position *board.Position

	positionHashes []uint64

	evalFile      string
	evalFileSmall string

	searching  bool
	searchDone chan struct{}
}

// New creates a protocol handler around eng.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		eng:      eng,
		position: board.NewPosition(),
	}
}

// Run reads commands from r and writes responses to w until EOF or
// "quit" (uci, isready, ucinewgame, position, setoption, go, stop,
// quit, plus the debug helpers show/eval/see).
func (u *UCI) Run(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			u.handleUCI(w)
		case "isready":
			fmt.Fprintln(w, "readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "setoption":
			u.handleSetOption(args)
		case "go":
			u.handleGo(args, w)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return
		case "show", "d":
			fmt.Fprintln(w, u.position.String())
		case "eval", "evaluate":
			fmt.Fprintf(w, "info string eval %d\n", engine.Evaluate(u.position))
		case "see":
			u.handleSEE(args, w)
		case "perft":
			u.handlePerft(args, w)
		}
	}
}

func (u *UCI) handleUCI(w io.Writer) {
	fmt.Fprintln(w, "id name deepsquare")
	fmt.Fprintln(w, "id author the deepsquare authors")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "option name Hash type spin default 64 min 1 max 4096")
	fmt.Fprintln(w, "option name Threads type spin default 1 min 1 max 256")
	fmt.Fprintln(w, "option name MultiPV type spin default 1 min 1 max 218")
	fmt.Fprintln(w, "option name UCI_AnalyseMode type check default false")
	fmt.Fprintln(w, "option name UseNNUE type check default false")
	fmt.Fprintln(w, "option name EvalFile type string default <empty>")
	fmt.Fprintln(w, "option name EvalFileSmall type string default <empty>")
	fmt.Fprintln(w, "uciok")
}

func (u *UCI) handleNewGame() {
	u.eng.Clear()
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash}
}

// handlePosition parses "position [startpos | fen <fen>] [moves ...]".
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var moveStart int
	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = 1
	case "fen":
		fenEnd := len(args)
		for i := 1; i < len(args); i++ {
			if args[i] == "moves" {
				fenEnd = i
				break
			}
		}
		pos, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			return
		}
		u.position = pos
		moveStart = fenEnd
	default:
		return
	}

	for i := moveStart; i < len(args); i++ {
		if args[i] == "moves" {
			moveStart = i + 1
			break
		}
	}

	u.positionHashes = []uint64{u.position.Hash}
	for i := moveStart; i < len(args); i++ {
		m := parseUCIMove(u.position, args[i])
		if m == board.NoMove {
			return
		}
		u.position.MakeMove(m)
		u.position.UpdateCheckers()
		u.positionHashes = append(u.positionHashes, u.position.Hash)
	}
}

// parseUCIMove resolves a long-algebraic move string against pos's
// legal moves, the only moment a UCI move string carries meaning.
func parseUCIMove(pos *board.Position, s string) board.Move {
	m, err := board.ParseMove(s, pos)
	if err != nil || !pos.GenerateLegalMoves().Contains(m) {
		return board.NoMove
	}
	return m
}

func (u *UCI) handleSetOption(args []string) {
	var name, value string
	var inName, inValue bool
	for _, a := range args {
		switch a {
		case "name":
			inName, inValue = true, false
		case "value":
			inName, inValue = false, true
		default:
			if inName {
				if name != "" {
					name += " "
				}
				name += a
			} else if inValue {
				if value != "" {
					value += " "
				}
				value += a
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		if n, err := strconv.Atoi(value); err == nil {
			u.eng.SetHashSizeMB(n)
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil {
			u.eng.SetThreads(n)
		}
	case "multipv":
		if n, err := strconv.Atoi(value); err == nil {
			u.eng.SetMultiPV(n)
		}
	case "uci_analysemode":
		u.eng.SetAnalyseMode(strings.EqualFold(value, "true"))
	case "usennue":
		u.eng.SetUseNNUE(strings.EqualFold(value, "true"))
	case "evalfile":
		u.evalFile = value
		if u.evalFile != "" {
			_ = u.eng.LoadNNUE(u.evalFile)
		}
	case "evalfilesmall":
		// Accepted for protocol compatibility with engines that split a
		// big/small network pair; this engine's NNUE evaluator only
		// consults a single network.
		u.evalFileSmall = value
	}
}

func (u *UCI) handleGo(args []string, w io.Writer) {
	limits := parseGoLimits(args)

	u.eng.SetPositionHistory(u.positionHashes)
	u.eng.OnInfo = func(info engine.SearchInfo) {
		u.writeInfo(w, info)
	}

	u.searching = true
	u.searchDone = make(chan struct{})
	pos := u.position.Copy()

	go func() {
		defer close(u.searchDone)
		best := u.eng.SearchWithLimits(pos, limits)
		u.searching = false
		if best == board.NoMove {
			fmt.Fprintln(w, "bestmove 0000")
			return
		}
		fmt.Fprintf(w, "bestmove %s\n", best.String())
	}()
}

func parseGoLimits(args []string) engine.SearchLimits {
	var l engine.SearchLimits
	for i := 0; i < len(args); i++ {
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch args[i] {
		case "depth":
			l.Depth, _ = strconv.Atoi(next())
		case "nodes":
			n, _ := strconv.ParseUint(next(), 10, 64)
			l.Nodes = n
		case "movetime":
			ms, _ := strconv.Atoi(next())
			l.MoveTime = time.Duration(ms) * time.Millisecond
		case "infinite":
			l.Infinite = true
		case "wtime":
			ms, _ := strconv.Atoi(next())
			l.Time[board.White] = time.Duration(ms) * time.Millisecond
		case "btime":
			ms, _ := strconv.Atoi(next())
			l.Time[board.Black] = time.Duration(ms) * time.Millisecond
		case "winc":
			ms, _ := strconv.Atoi(next())
			l.Inc[board.White] = time.Duration(ms) * time.Millisecond
		case "binc":
			ms, _ := strconv.Atoi(next())
			l.Inc[board.Black] = time.Duration(ms) * time.Millisecond
		case "movestogo":
			l.MovesToGo, _ = strconv.Atoi(next())
		case "ponder":
			l.Ponder = true
		}
	}
	return l
}

func (u *UCI) writeInfo(w io.Writer, info engine.SearchInfo) {
	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d seldepth %d multipv %d", info.Depth, info.SelDepth, info.MultiPVIndex)

	if info.Score > engine.MateScore-256 {
		fmt.Fprintf(&b, " score mate %d", (engine.MateScore-info.Score+1)/2)
	} else if info.Score < -engine.MateScore+256 {
		fmt.Fprintf(&b, " score mate %d", -(engine.MateScore+info.Score+1)/2)
	} else {
		fmt.Fprintf(&b, " score cp %d", info.Score)
	}

	fmt.Fprintf(&b, " nodes %d time %d", info.Nodes, info.Time.Milliseconds())
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		fmt.Fprintf(&b, " nps %d", nps)
	}
	if info.HashFull > 0 {
		fmt.Fprintf(&b, " hashfull %d", info.HashFull)
	}
	if len(info.PV) > 0 {
		fmt.Fprint(&b, " pv")
		for _, m := range info.PV {
			fmt.Fprintf(&b, " %s", m.String())
		}
	}
	fmt.Fprintln(w, b.String())
}

func (u *UCI) handleStop() {
	if u.searching {
		u.eng.Stop()
		<-u.searchDone
	}
}

// handleSEE implements the `see <uci-move>` debug command: reports the
// static exchange evaluation of a move in the current position without
// affecting search state.
func (u *UCI) handleSEE(args []string, w io.Writer) {
	if len(args) == 0 {
		return
	}
	m := parseUCIMove(u.position, args[0])
	if m == board.NoMove {
		fmt.Fprintf(w, "info string see invalid move %s\n", args[0])
		return
	}
	fmt.Fprintf(w, "info string see %d\n", engine.SEE(u.position, m))
}

func (u *UCI) handlePerft(args []string, w io.Writer) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			depth = n
		}
	}
	start := time.Now()
	nodes := u.eng.Perft(u.position, depth)
	elapsed := time.Since(start)
	fmt.Fprintf(w, "Nodes: %d\n", nodes)
	fmt.Fprintf(w, "Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Fprintf(w, "NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
