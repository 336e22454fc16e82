package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/netconfig"
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandType is what a line of terminal input asks for.
type CommandType int

const (
	CmdAction CommandType = iota
	CmdSpawn
	CmdMove
	CmdDestroy
	CmdStatus
	CmdHelp
	CmdQuit
)

// Command is one parsed line of input.
type Command struct {
	Type   CommandType
	Action netconfig.ActionID
	Kind   int
	Object netconfig.NetRef
	Parent netconfig.NetRef // NoRef means "my own holder"
}

const Usage = `commands:
  ready | e                 interact (mark ready in the lobby)
  pause | p                 toggle local pause
  spawn <kind> [parent]     spawn a catalog kind (name or index)
  move <object> [parent]    move an object onto a holder
  destroy <object>          destroy an object
  status                    print match and object state
  quit`

// ParseCommand turns one line into a Command. Kinds may be given by catalog
// name or index.
func ParseCommand(line string, cat *catalog.Catalog) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}

	switch verb, args := fields[0], fields[1:]; verb {
	case "ready", "interact", "e":
		return Command{Type: CmdAction, Action: netconfig.ActionInteract}, nil
	case "pause", "p":
		return Command{Type: CmdAction, Action: netconfig.ActionPause}, nil
	case "status", "s":
		return Command{Type: CmdStatus}, nil
	case "help", "?":
		return Command{Type: CmdHelp}, nil
	case "quit", "exit", "q":
		return Command{Type: CmdQuit}, nil

	case "spawn":
		if len(args) < 1 {
			return Command{}, errors.New("usage: spawn <kind> [parent]")
		}
		kind, err := parseKind(args[0], cat)
		if err != nil {
			return Command{}, err
		}
		parent, err := optionalRef(args[1:])
		if err != nil {
			return Command{}, err
		}
		return Command{Type: CmdSpawn, Kind: kind, Parent: parent}, nil

	case "move":
		if len(args) < 1 {
			return Command{}, errors.New("usage: move <object> [parent]")
		}
		obj, err := parseRef(args[0])
		if err != nil {
			return Command{}, err
		}
		parent, err := optionalRef(args[1:])
		if err != nil {
			return Command{}, err
		}
		return Command{Type: CmdMove, Object: obj, Parent: parent}, nil

	case "destroy":
		if len(args) != 1 {
			return Command{}, errors.New("usage: destroy <object>")
		}
		obj, err := parseRef(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Type: CmdDestroy, Object: obj}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
	}
}

func parseKind(s string, cat *catalog.Catalog) (int, error) {
	if idx, err := strconv.Atoi(s); err == nil {
		if _, err := cat.Kind(idx); err != nil {
			return 0, err
		}
		return idx, nil
	}
	if idx, ok := cat.IndexOf(s); ok {
		return idx, nil
	}
	return 0, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, s)
}

func parseRef(s string) (netconfig.NetRef, error) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil || n == 0 {
		return netconfig.NoRef, fmt.Errorf("invalid reference %q", s)
	}
	return netconfig.NetRef(n), nil
}

func optionalRef(args []string) (netconfig.NetRef, error) {
	if len(args) == 0 {
		return netconfig.NoRef, nil
	}
	return parseRef(args[0])
}

// ReadCommands parses lines from r until EOF or ctx is done. Parse errors are
// delivered on errs and reading continues.
func ReadCommands(ctx context.Context, r io.Reader, cat *catalog.Catalog) (<-chan Command, <-chan error) {
	cmds := make(chan Command)
	errs := make(chan error, 1)

	go func() {
		defer close(cmds)
		defer close(errs)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			cmd, err := ParseCommand(line, cat)
			if err != nil {
				select {
				case errs <- err:
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case cmds <- cmd:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}()

	return cmds, errs
}
