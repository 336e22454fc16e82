package core

import "github.com/automoto/kitchen-mp/shared/messages"

// command is a request queued for the game loop goroutine.
type command interface{ isCommand() }

type joinCommand struct {
	conn Conn
	req  messages.JoinRequest
}

type leaveCommand struct{ conn Conn }

type readyCommand struct{ conn Conn }

type spawnCommand struct {
	conn Conn
	req  messages.SpawnRequest
}

type reparentCommand struct {
	conn Conn
	req  messages.ReparentRequest
}

type destroyCommand struct {
	conn Conn
	req  messages.DestroyRequest
}

func (joinCommand) isCommand()     {}
func (leaveCommand) isCommand()    {}
func (readyCommand) isCommand()    {}
func (spawnCommand) isCommand()    {}
func (reparentCommand) isCommand() {}
func (destroyCommand) isCommand()  {}
