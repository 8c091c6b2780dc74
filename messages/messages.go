package messages

import "github.com/minor-industries/protoplot/schema"

// Data is one websocket frame sent to chart clients.
type Data struct {
	Samples []schema.Sample `json:"samples,omitempty"`
	Error   string          `json:"error,omitempty"`
	Now     int64           `json:"now,omitempty"`
}
