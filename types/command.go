package types

// CommandRequest is a chat line submitted to the bot over HTTP or websocket.
type CommandRequest struct {
	Sender  string `json:"sender" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// CommandReply is the single reply produced for a CommandRequest.
type CommandReply struct {
	Command string `json:"command"`
	Text    string `json:"text"`
}

// SettingValue is the body of a settings read or update.
type SettingValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
