package notifications

import (
	"encoding/json"

	"commentboard/internal/models"
)

// RoomComments is the single room every board viewer joins.
const RoomComments = "comments-room"

// Server-to-client event types.
const (
	EventCommentNew      = "comment:new"
	EventCommentUpdated  = "comment:updated"
	EventCommentDeleted  = "comment:deleted"
	EventMessagesDropped = "messages_dropped"
	EventJoined          = "joined"
	EventLeft            = "left"
	EventError           = "error"
)

// Client-to-server message types.
const (
	MsgJoinComments  = "join-comments"
	MsgLeaveComments = "leave-comments"
	MsgPing          = "ping"
)

// Event is the envelope written to every subscriber.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode renders the event as a websocket text frame.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// CommentNew announces a freshly created comment.
func CommentNew(c *models.Comment) Event {
	return Event{Type: EventCommentNew, Payload: c}
}

// CommentUpdated carries the full post-vote snapshot, including its version.
func CommentUpdated(c *models.Comment) Event {
	return Event{Type: EventCommentUpdated, Payload: c}
}

// CommentDeleted carries only the id of the removed comment.
func CommentDeleted(commentID string) Event {
	return Event{Type: EventCommentDeleted, Payload: commentID}
}

// incomingMessage is what viewers send. A bare string such as
// "join-comments" is accepted as well.
type incomingMessage struct {
	Type string `json:"type"`
}

func parseIncoming(raw []byte) string {
	var msg incomingMessage
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Type != "" {
		return msg.Type
	}
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare
	}
	return string(raw)
}
