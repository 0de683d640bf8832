package stream

import "github.com/rcliao/gchat/internal/model"

// Turn is one entry of the outgoing conversation history.
type Turn struct {
	Role model.Role
	Text string
}

// AssembleHistory builds the history sent with a request from a chat's
// stored messages in timestamp order. Failed generations are skipped.
// Unless unlimited, only the last window messages are kept. Leading
// model turns are dropped so the history opens with a user turn, and a
// run of model turns collapses into its last one.
func AssembleHistory(msgs []model.Message, window int, unlimited bool) []Turn {
	kept := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if mm, ok := m.(*model.ModelMessage); ok && mm.Failed() {
			continue
		}
		kept = append(kept, m)
	}
	if !unlimited && window >= 0 && len(kept) > window {
		kept = kept[len(kept)-window:]
	}

	turns := []Turn{}
	var last model.Role
	for _, m := range kept {
		role := m.Role()
		switch {
		case role == model.RoleUser:
			turns = append(turns, Turn{Role: role, Text: m.Base().Content})
		case last == model.RoleUser:
			turns = append(turns, Turn{Role: role, Text: m.Base().Content})
		case last == model.RoleModel:
			turns[len(turns)-1].Text = m.Base().Content
		default:
			// model turn before any user turn
			continue
		}
		last = role
	}
	return turns
}
