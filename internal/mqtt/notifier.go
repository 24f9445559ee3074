package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Topics the notifier publishes quest change events to.
const (
	TopicQuestSaved   = "pipeline/quests/saved"
	TopicQuestDeleted = "pipeline/quests/deleted"
)

// Notifier publishes quest change notifications so downstream content
// pipelines can pick up edits without polling. Publishing is best-effort:
// failures are logged, never surfaced to the editor.
type Notifier struct {
	client   *Client
	editorID string
}

// NewNotifier wraps a connected client. client may be nil, in which case
// all notifications are no-ops.
func NewNotifier(client *Client, editorID string) *Notifier {
	return &Notifier{client: client, editorID: editorID}
}

type questNotification struct {
	QuestID   string `json:"questId"`
	EditorID  string `json:"editorId"`
	Timestamp string `json:"ts"`
}

func (n *Notifier) publish(topic, questID string) {
	if n == nil || n.client == nil {
		return
	}
	payload, err := json.Marshal(questNotification{
		QuestID:   questID,
		EditorID:  n.editorID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if err := n.client.Publish(topic, payload); err != nil {
		slog.Warn("mqtt publish failed", "topic", topic, "quest", questID, "error", err)
	}
}

// QuestSaved notifies that a quest was created or updated.
func (n *Notifier) QuestSaved(questID string) {
	n.publish(TopicQuestSaved, questID)
}

// QuestDeleted notifies that a quest was removed.
func (n *Notifier) QuestDeleted(questID string) {
	n.publish(TopicQuestDeleted, questID)
}
