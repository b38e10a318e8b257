package p2p

// Control message types exchanged during the handshake. Steady-state
// traffic uses Frame instead.
const (
	msgInfoRequest    = "info_request"
	msgInfoResponse   = "info_response"
	msgConnectRequest = "connect_request"
	msgConnectAccept  = "connect_accept"
	msgConnectReject  = "connect_reject"
)

// controlMsg is the union of every handshake message. Type selects
// which fields are meaningful.
type controlMsg struct {
	Type      string `json:"type"`
	PeerID    string `json:"peer_id,omitempty"`
	AppName   string `json:"app_name,omitempty"`
	Accepting bool   `json:"accepting"`
	Reason    string `json:"reason,omitempty"`
}

// Frame is one steady-state message on an admitted connection. Data is
// whatever JSON value the sender attached.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
