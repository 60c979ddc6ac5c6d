package conversation

import "github.com/structai/structai/backend/internal/model/conversation"

// NoSelection marks the absence of an explicit selection; the newest entry
// is shown instead.
const NoSelection = -1

// ResolveCurrent picks the entry to display. An in-bounds selection wins;
// no selection or an out-of-bounds one falls back to the newest entry. The
// resolution is pure and recomputed on every relevant state change.
func ResolveCurrent(entries []conversation.Entry, selected int) (conversation.Entry, bool) {
	if len(entries) == 0 {
		return conversation.Entry{}, false
	}
	if selected >= 0 && selected < len(entries) {
		return entries[selected], true
	}
	return entries[0], true
}
