package protocol

import "encoding/json"

const (
	// ProtocolVersion is the protocol revision announced during initialization
	ProtocolVersion = "2024-11-05"

	// Methods for lifecycle management
	MethodInitialize = "initialize"
	MethodPing       = "ping"

	// Methods for server features
	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"

	// Notifications sent by servers
	MethodToolsListChanged = "notifications/tools/list_changed"
	MethodMessage          = "notifications/message"
	MethodProgress         = "notifications/progress"
)

// Implementation identifies a client or server by name and version
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities declares the features the client supports. Each member is an
// empty object on the wire.
type ClientCapabilities struct {
	Prompts   struct{} `json:"prompts"`
	Resources struct{} `json:"resources"`
	Tools     struct{} `json:"tools"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// NewInitializeParams builds the fixed initialize parameters for a client
func NewInitializeParams(info Implementation) InitializeParams {
	return InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      info,
	}
}

// InitializeResult is the server's answer to initialize. Only ProtocolVersion is
// required to consider the handshake complete.
type InitializeResult struct {
	ProtocolVersion string                     `json:"protocolVersion"`
	Capabilities    map[string]json.RawMessage `json:"capabilities,omitempty"`
	ServerInfo      Implementation             `json:"serverInfo"`
	Instructions    string                     `json:"instructions,omitempty"`
}
