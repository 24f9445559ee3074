package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// quest
	"quest.loaded":      {},
	"quest.created":     {},
	"quest.saved":       {},
	"quest.save_failed": {},
	"quest.deleted":     {},
	"quest.flushed":     {},
	"quest.validated":   {},

	// node
	"node.added":   {},
	"node.removed": {},
	"node.moved":   {},
	"node.updated": {},

	// edge
	"edge.connected": {},
	"edge.removed":   {},

	// session
	"session.started": {},
	"session.closed":  {},

	// metadata
	"metadata.saved": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
