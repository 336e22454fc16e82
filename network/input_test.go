package network

import (
	"context"
	"strings"
	"testing"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		line string
		want Command
	}{
		{"ready", Command{Type: CmdAction, Action: netconfig.ActionInteract}},
		{"E", Command{Type: CmdAction, Action: netconfig.ActionInteract}},
		{"p", Command{Type: CmdAction, Action: netconfig.ActionPause}},
		{"spawn tomato", Command{Type: CmdSpawn, Kind: 0}},
		{"spawn Plate 4", Command{Type: CmdSpawn, Kind: 10, Parent: 4}},
		{"spawn 6 2", Command{Type: CmdSpawn, Kind: 6, Parent: 2}},
		{"move 9", Command{Type: CmdMove, Object: 9}},
		{"move 9 3", Command{Type: CmdMove, Object: 9, Parent: 3}},
		{"destroy 12", Command{Type: CmdDestroy, Object: 12}},
		{"  status ", Command{Type: CmdStatus}},
		{"quit", Command{Type: CmdQuit}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line, cat)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	cat := catalog.Default()

	_, err := ParseCommand("dance", cat)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = ParseCommand("spawn pizza", cat)
	assert.ErrorIs(t, err, catalog.ErrUnknownKind)

	_, err = ParseCommand("spawn 42", cat)
	assert.ErrorIs(t, err, catalog.ErrUnknownKind)

	_, err = ParseCommand("destroy 0", cat)
	assert.Error(t, err)

	_, err = ParseCommand("move", cat)
	assert.Error(t, err)
}

func TestReadCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds, errs := ReadCommands(ctx, strings.NewReader("ready\n\nbogus\nspawn bread 1\n"), catalog.Default())

	var got []Command
	var gotErrs []error
	for cmds != nil || errs != nil {
		select {
		case c, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			got = append(got, c)
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			gotErrs = append(gotErrs, e)
		}
	}

	assert.Equal(t, []Command{
		{Type: CmdAction, Action: netconfig.ActionInteract},
		{Type: CmdSpawn, Kind: 6, Parent: 1},
	}, got)
	require.Len(t, gotErrs, 1)
	assert.ErrorIs(t, gotErrs[0], ErrUnknownCommand)
}
