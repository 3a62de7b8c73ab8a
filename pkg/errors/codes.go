package errors

// Fixed codes attached to each kind. They follow the JSON-RPC convention of negative
// codes, with -32700 and -32603 reused from the standard range.
const (
	CodeTimeout     int = -32000
	CodeNetwork     int = -32001
	CodeConnection  int = -32002
	CodeIntegration int = -32099
	CodeParse       int = -32700
	CodeProtocol    int = -32603
)

// JSON-RPC 2.0 standard codes used when replying to server initiated requests
const (
	CodeInvalidRequest int = -32600
	CodeMethodNotFound int = -32601
	CodeInvalidParams  int = -32602
)

// KindForCode maps a fixed code back to its kind. Unknown codes map to protocol.
func KindForCode(code int) Kind {
	for _, k := range Kinds {
		if k.Code() == code {
			return k
		}
	}
	return KindProtocol
}
