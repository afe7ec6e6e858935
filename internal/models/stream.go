package models

type StreamEventType string

const (
	StreamContentDelta StreamEventType = "content_delta"
	StreamAction       StreamEventType = "action"
	StreamDone         StreamEventType = "done"
	StreamError        StreamEventType = "error"
)

type ActionType string

const (
	ActionMealLogged        ActionType = "meal_logged"
	ActionMealPlanned       ActionType = "meal_planned"
	ActionMealUpdated       ActionType = "meal_updated"
	ActionPreferenceUpdated ActionType = "preference_updated"
)

// Action is the single side-channel event a chat turn may emit. Data is a
// record or an array of records; Count is set when plural.
type Action struct {
	Type  ActionType  `json:"type"`
	Data  interface{} `json:"data"`
	Count int         `json:"count,omitempty"`
}

// StreamEvent is the tagged union flowing from the streaming coordinator
// to the SSE writer. Exactly one of Content, Action, or Err is meaningful
// depending on Type.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Action  *Action
	Err     error
}
