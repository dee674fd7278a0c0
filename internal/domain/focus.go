package domain

import "time"

const (
	EventFileOpened      = "file_opened"
	EventFileEdited      = "file_edited"
	EventFunctionFocused = "function_focused"
	EventClassFocused    = "class_focused"
)

type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// FocusEvent signals what a developer is currently working on.
type FocusEvent struct {
	EventType    string    `json:"event_type"`
	FilePath     string    `json:"file_path"`
	DeveloperID  string    `json:"developer_id"`
	FunctionName string    `json:"function_name,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
	Cursor       *Cursor   `json:"cursor,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
}
