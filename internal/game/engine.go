package game

import (
	"time"

	"github.com/charmbracelet/log"
)

// Mode is the engine's control state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRunning
	ModePaused
	ModeClearing
	ModeLevelComplete
	ModeGameOver
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeRunning:
		return "running"
	case ModePaused:
		return "paused"
	case ModeClearing:
		return "clearing"
	case ModeLevelComplete:
		return "level_complete"
	case ModeGameOver:
		return "game_over"
	}
	return "unknown"
}

// Terminal reports whether the level has ended.
func (m Mode) Terminal() bool {
	return m == ModeLevelComplete || m == ModeGameOver
}

const (
	spawnRescueRows = 2
	warpRescueRows  = 5
	softDropFactor  = 5
)

var (
	rotateKicksX = []int{1, -1, 2, -2}
	rotateKicksI = []int{-1, -2}
)

// Progression is the level registry the engine reports results to.
type Progression interface {
	RecordAttempt(level, score int) bool
	CanSelect(level int) bool
	NextUnlocked(from int) (int, bool)
	PrevUnlocked(from int) (int, bool)
	States() []LevelState
	HighScores() []int
}

// Outcome is the result of the most recent scored turn or completed level.
type Outcome struct {
	Turn      TurnScore
	Rows      []int
	NewRecord bool
}

type pendingClear struct {
	turn TurnScore
	rows []int
}

type Options struct {
	Seed        int64
	Level       int
	Progression Progression
	Logger      *log.Logger
	JournalSize int
}

// Engine runs one play session. It is not safe for concurrent use: the
// host calls Submit and Tick from a single loop.
type Engine struct {
	gen      *Generator
	progress Progression
	journal  *Journal

	level int
	spec  LevelSpec
	mode  Mode

	boards  []*Board
	active  int
	current *Piece
	next    *Piece

	remaining time.Duration
	elapsed   time.Duration
	interval  time.Duration
	fallAcc   time.Duration
	clearing  time.Duration
	softDrop  bool

	pending *pendingClear
	score   int
	last    Outcome

	queue []Command
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		gen:      NewGenerator(opts.Seed),
		progress: opts.Progression,
		journal:  NewJournal(opts.JournalSize, opts.Logger),
	}
	level := opts.Level
	if level < 0 || level >= NumLevels || !e.canSelect(level) {
		e.journal.Errorf("%v: %d, starting level 1", ErrInvalidLevel, level+1)
		level = 0
	}
	e.loadLevel(level)
	return e
}

// Submit queues a command for the next tick.
func (e *Engine) Submit(cmd Command) {
	e.queue = append(e.queue, cmd)
}

// Tick drains queued commands, then advances timers and gravity by dt.
func (e *Engine) Tick(dt time.Duration) {
	queue := e.queue
	e.queue = nil
	for _, cmd := range queue {
		e.apply(cmd)
	}

	switch e.mode {
	case ModeRunning:
		e.remaining -= dt
		if e.remaining <= 0 {
			e.remaining = 0
			e.complete()
			break
		}
		e.elapsed += dt
		e.gravity(dt)
	case ModeClearing:
		e.clearing -= dt
		if e.clearing <= 0 {
			e.resolveClear()
		}
	}
	e.softDrop = false
}

func (e *Engine) Mode() Mode               { return e.mode }
func (e *Engine) Score() int               { return e.score }
func (e *Engine) LevelIndex() int          { return e.level }
func (e *Engine) Spec() LevelSpec          { return e.spec }
func (e *Engine) ActiveBoard() int         { return e.active }
func (e *Engine) Board(i int) *Board       { return e.boards[i] }
func (e *Engine) Current() *Piece          { return e.current }
func (e *Engine) Next() *Piece             { return e.next }
func (e *Engine) Remaining() time.Duration { return e.remaining }
func (e *Engine) Journal() *Journal        { return e.journal }

func (e *Engine) board() *Board {
	return e.boards[e.active]
}

func (e *Engine) canSelect(level int) bool {
	if e.progress == nil {
		return true
	}
	return e.progress.CanSelect(level)
}

func (e *Engine) loadLevel(index int) {
	spec := Levels[index]
	rng := e.gen.Rand()

	e.level = index
	e.spec = spec
	e.journal.Infof("--- level %d: %s ---", spec.ID, spec.Name)

	n := 1
	if spec.DualBoard {
		n = 2
	}
	e.boards = make([]*Board, n)
	for i := range e.boards {
		b := NewBoard()
		if spec.GazeCells > 0 {
			if got := b.PopulateGaze(spec.GazeCells, rng); got < spec.GazeCells {
				e.journal.Warnf("only %d of %d gaze cells generated", got, spec.GazeCells)
			}
		}
		if spec.Bombs > 0 {
			if got := b.PopulateBombs(spec.Bombs, rng); got < spec.Bombs {
				e.journal.Warnf("only %d of %d bombs generated", got, spec.Bombs)
			}
		}
		obstacles := spec.Obstacles
		if spec.DualBoard {
			obstacles = spec.Obstacles / 2
			if i == 0 {
				obstacles += spec.Obstacles % 2
			}
		}
		if obstacles > 0 {
			got := b.SeedObstacles(obstacles, rng)
			e.journal.Infof("placed %d of %d obstacle blocks", got, obstacles)
			if b.IsToppedOut() {
				e.journal.Warnf("obstacles reach the top row")
			}
		}
		e.boards[i] = b
	}
	if spec.DualBoard {
		e.journal.Infof("space warp active: hard drop switches boards")
	}

	e.active = 0
	e.mode = ModeIdle
	e.remaining = spec.TimeLimit
	e.elapsed = 0
	e.interval = spec.FallInterval(0)
	e.fallAcc = 0
	e.clearing = 0
	e.softDrop = false
	e.pending = nil
	e.score = 0
	e.last = Outcome{}

	e.next = e.gen.NextPiece()
	e.spawn()
}

func (e *Engine) apply(cmd Command) {
	if e.mode == ModeClearing && cmd.Kind != CmdRestart {
		return
	}

	switch cmd.Kind {
	case CmdStart:
		if e.mode == ModeIdle {
			e.mode = ModeRunning
			e.journal.Infof("game started")
		}
	case CmdPause:
		e.pause()
	case CmdResume:
		e.resume()
	case CmdTogglePause:
		switch e.mode {
		case ModeIdle:
			e.mode = ModeRunning
			e.journal.Infof("game started")
		case ModeRunning:
			e.pause()
		case ModePaused:
			e.resume()
		}
	case CmdRestart:
		e.journal.Infof("restarting level %d", e.level+1)
		e.loadLevel(e.level)
	case CmdSelectLevel:
		e.selectLevel(cmd.Level)
	case CmdSelectNextLevel:
		if next, ok := e.neighbor(true); ok {
			e.selectLevel(next)
		} else {
			e.journal.Infof("already at the last selectable level")
		}
	case CmdSelectPrevLevel:
		if prev, ok := e.neighbor(false); ok {
			e.selectLevel(prev)
		} else {
			e.journal.Infof("already at the first selectable level")
		}
	default:
		if e.mode == ModeRunning && e.current != nil {
			e.control(cmd.Kind)
		}
	}
}

func (e *Engine) pause() {
	if e.mode == ModeRunning {
		e.mode = ModePaused
		e.journal.Infof("paused")
	}
}

func (e *Engine) resume() {
	if e.mode == ModePaused {
		e.mode = ModeRunning
		e.journal.Infof("resumed")
	}
}

func (e *Engine) neighbor(forward bool) (int, bool) {
	if e.progress != nil {
		if forward {
			return e.progress.NextUnlocked(e.level)
		}
		return e.progress.PrevUnlocked(e.level)
	}
	i := e.level - 1
	if forward {
		i = e.level + 1
	}
	return i, i >= 0 && i < NumLevels
}

func (e *Engine) selectLevel(index int) {
	if index < 0 || index >= NumLevels {
		e.journal.Errorf("%v: %d", ErrInvalidLevel, index+1)
		return
	}
	if index == e.level {
		return
	}
	if !e.canSelect(index) {
		e.journal.Infof("level %d is locked", index+1)
		return
	}
	e.loadLevel(index)
}

func (e *Engine) control(kind CommandKind) {
	b := e.board()
	p := e.current

	switch kind {
	case CmdMoveLeft, CmdMoveRight:
		dx, sym := -1, '←'
		if kind == CmdMoveRight {
			dx, sym = 1, '→'
		}
		if !b.IsValidPosition(p, dx, 0) {
			return
		}
		p.Translate(dx, 0)
		e.journal.Op(sym)
	case CmdRotateCW:
		if !e.rotate() {
			return
		}
		e.journal.Op('↑')
	case CmdSoftDrop:
		e.softDrop = true
		if !b.IsValidPosition(p, 0, 1) {
			return
		}
		p.Translate(0, 1)
		e.fallAcc = 0
		e.journal.Op('↓')
	case CmdHardDrop:
		if e.spec.DualBoard {
			if !e.warp() {
				return
			}
			e.journal.Op('⇋')
			break
		}
		for b.IsValidPosition(p, 0, 1) {
			p.Translate(0, 1)
		}
		e.journal.Op('░')
		e.lock()
		return
	default:
		return
	}
	e.checkBomb()
}

// rotate turns the current piece clockwise, trying horizontal kicks and,
// for the I piece, upward kicks. On failure the piece is restored.
func (e *Engine) rotate() bool {
	b := e.board()
	p := e.current
	x, y := p.X, p.Y
	prior := p.Rotate(true)

	if b.IsValidPosition(p, 0, 0) {
		return true
	}
	for _, dx := range rotateKicksX {
		if b.IsValidPosition(p, dx, 0) {
			p.Translate(dx, 0)
			return true
		}
	}
	if p.Type == PieceI {
		for _, dy := range rotateKicksI {
			if b.IsValidPosition(p, 0, dy) {
				p.Translate(0, dy)
				return true
			}
		}
	}

	p.Rotation, p.X, p.Y = prior, x, y
	return false
}

// warp moves the current piece onto the other board, lifting it up to
// warpRescueRows rows if its position there is blocked.
func (e *Engine) warp() bool {
	target := 1 - e.active
	b := e.boards[target]
	for dy := 0; dy <= warpRescueRows; dy++ {
		if b.IsValidPosition(e.current, 0, -dy) {
			e.current.Translate(0, -dy)
			e.active = target
			if dy > 0 {
				e.journal.Infof("switched to board %d (lifted %d)", target+1, dy)
			} else {
				e.journal.Infof("switched to board %d", target+1)
			}
			return true
		}
	}
	e.journal.Infof("switch failed: board %d is blocked", target+1)
	return false
}

func (e *Engine) checkBomb() {
	if e.current != nil && e.board().CheckBombHit(e.current) {
		e.gameOver("stepped on a bomb")
	}
}

func (e *Engine) gravity(dt time.Duration) {
	interval := e.spec.FallInterval(e.elapsed)
	if diff := e.interval - interval; diff > 10*time.Millisecond || diff < -10*time.Millisecond {
		e.interval = interval
		e.journal.Infof("speed up: %.2fs per row", interval.Seconds())
	}
	if e.softDrop {
		interval /= softDropFactor
	}

	e.fallAcc += dt
	for e.mode == ModeRunning && e.fallAcc >= interval {
		e.fallAcc -= interval
		if !e.board().IsValidPosition(e.current, 0, 1) {
			e.lock()
			e.fallAcc = 0
			return
		}
		e.current.Translate(0, 1)
		e.checkBomb()
	}
}

func (e *Engine) lock() {
	b := e.board()
	hit := b.CheckBombHit(e.current)
	b.Merge(e.current)
	if hit {
		e.gameOver("stepped on a bomb")
		return
	}
	for _, c := range e.current.Cells() {
		if c.Y < 0 {
			e.gameOver("top out: piece locked above the board")
			return
		}
	}

	gaze := b.CheckGaze()
	if gaze.Score > 0 {
		e.journal.Infof("king's gaze: cleared %d cells for %d", gaze.Blocks, gaze.Score)
		if e.spec.GazeCells > 0 {
			if got := b.PopulateGaze(e.spec.GazeCells, e.gen.Rand()); got < e.spec.GazeCells {
				e.journal.Warnf("only %d of %d gaze cells generated", got, e.spec.GazeCells)
			}
		}
	}

	cleared := b.ClearFullRows()
	blocks := cleared.Blocks + gaze.Blocks
	if blocks == 0 {
		e.spawn()
		return
	}

	e.pending = &pendingClear{turn: ScoreTurn(blocks, gaze.Score), rows: cleared.Rows}
	e.current = nil
	e.clearing = ClearDelay
	e.mode = ModeClearing
}

func (e *Engine) resolveClear() {
	p := e.pending
	e.pending = nil
	e.clearing = 0
	e.mode = ModeRunning
	if p != nil {
		e.score += p.turn.Total
		e.last = Outcome{Turn: p.turn, Rows: p.rows}
		if p.turn.Bonus > 0 {
			e.journal.Infof("score +%d (%d blocks) bonus +%d", p.turn.Base+p.turn.Gaze, p.turn.Blocks, p.turn.Bonus)
		} else {
			e.journal.Infof("score +%d (%d blocks)", p.turn.Base+p.turn.Gaze, p.turn.Blocks)
		}
	}
	e.spawn()
}

// spawn promotes the next piece. A blocked spawn is lifted up to
// spawnRescueRows rows before the game is lost.
func (e *Engine) spawn() {
	e.current = e.next
	e.next = e.gen.NextPiece()
	e.fallAcc = 0

	b := e.board()
	if b.IsValidPosition(e.current, 0, 0) {
		return
	}
	for dy := 1; dy <= spawnRescueRows; dy++ {
		if b.IsValidPosition(e.current, 0, -dy) {
			e.current.Translate(0, -dy)
			return
		}
	}
	e.gameOver("top out: new piece cannot be placed")
}

func (e *Engine) gameOver(reason string) {
	e.mode = ModeGameOver
	e.journal.Infof("game over - %s", reason)
}

func (e *Engine) complete() {
	e.mode = ModeLevelComplete
	e.journal.Infof("time up: level %d finished with %d", e.level+1, e.score)
	if e.progress != nil {
		e.last.NewRecord = e.progress.RecordAttempt(e.level, e.score)
	}
}
