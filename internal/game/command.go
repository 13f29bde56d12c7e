package game

// CommandKind identifies an abstract player input.
type CommandKind int

const (
	CmdMoveLeft CommandKind = iota
	CmdMoveRight
	CmdRotateCW
	CmdSoftDrop
	CmdHardDrop
	CmdPause
	CmdResume
	CmdTogglePause
	CmdRestart
	CmdStart
	CmdSelectLevel
	CmdSelectNextLevel
	CmdSelectPrevLevel
)

var commandNames = map[CommandKind]string{
	CmdMoveLeft:        "move_left",
	CmdMoveRight:       "move_right",
	CmdRotateCW:        "rotate_cw",
	CmdSoftDrop:        "soft_drop",
	CmdHardDrop:        "hard_drop",
	CmdPause:           "pause",
	CmdResume:          "resume",
	CmdTogglePause:     "toggle_pause",
	CmdRestart:         "restart",
	CmdStart:           "start",
	CmdSelectLevel:     "select_level",
	CmdSelectNextLevel: "select_next_level",
	CmdSelectPrevLevel: "select_prev_level",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is one queued input. Level is only read by CmdSelectLevel.
type Command struct {
	Kind  CommandKind
	Level int
}

func Cmd(kind CommandKind) Command {
	return Command{Kind: kind}
}

func SelectLevel(index int) Command {
	return Command{Kind: CmdSelectLevel, Level: index}
}
