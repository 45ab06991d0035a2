package telegram

// Update is one inbound event delivered to the webhook.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound chat message. Voice is set for voice notes.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
	Voice     *Voice `json:"voice,omitempty"`
}

// Chat identifies the conversation an update belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender of a message or callback.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Voice references an uploaded voice recording.
type Voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// File is the metadata needed to download an uploaded file.
type File struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// InlineKeyboard is a grid of callback buttons attached to a message.
type InlineKeyboard struct {
	Buttons [][]Button `json:"inline_keyboard"`
}

// Button is one inline keyboard entry.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Row appends a row of buttons and returns the keyboard for chaining.
func (k *InlineKeyboard) Row(buttons ...Button) *InlineKeyboard {
	k.Buttons = append(k.Buttons, buttons)
	return k
}
