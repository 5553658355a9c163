package protocol

import "encoding/json"

const Version = "1.1"

// Message types.
const (
	TypeLogin     = "LOGIN"
	TypeLoginOK   = "LOGIN_OK"
	TypeLoginDeny = "LOGIN_DENIED"
	TypeAdmission = "ADMISSION" // admin feed event
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
