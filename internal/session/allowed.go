package session

import (
	"slices"

	"github.com/cardtable/pokersync/internal/game"
)

// AllowedCommands returns the commands viewer may usefully send given state.
// It drives which affordances the presentation enables; the server remains
// the authority and may still reject any of them.
func AllowedCommands(state *game.Snapshot, viewer game.PlayerID) map[game.MessageType]bool {
	allowed := make(map[game.MessageType]bool)
	if state == nil || viewer == game.NoPlayer {
		return allowed
	}

	seat := state.Seats.IndexOf(viewer)
	seated := seat >= 0

	if seated || state.Status == game.StatusLobby {
		allowed[game.MsgTypeExit] = true
	}
	if seated {
		allowed[game.MsgTypeNewMessage] = true
		allowed[game.MsgTypeTypingStart] = true
		allowed[game.MsgTypeTypingEnd] = true
	}

	switch state.Status {
	case game.StatusLobby:
		occupied := state.Seats.Occupied()
		if !seated && occupied < len(state.Seats) {
			allowed[game.MsgTypeTakeSeat] = true
		}
		if viewer == state.Owner && occupied >= game.MinPlayersToStart {
			allowed[game.MsgTypeStart] = true
		}

	case game.StatusActive:
		if !seated || seat != state.CurrentPlayer {
			break
		}
		for _, action := range game.TurnActions {
			if len(state.Actions) > 0 && !slices.Contains(state.Actions, action) {
				continue
			}
			allowed[action] = true
		}
	}
	return allowed
}
