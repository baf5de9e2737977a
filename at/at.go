// Package at holds the AT command vocabulary spoken by the SIM800-class
// modem on the node: command strings, result tokens and the small parsers
// for the responses the node inspects.
package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "

	// Response Codes
	OK       = "OK"
	ERROR    = "ERROR"
	CmeError = "+CME ERROR:"
	CmsError = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcNewMsg = "+CMTI:"
	UrcCall   = "RING"

	// Intermediate responses
	RespClock       = "+CCLK: \""
	RespReadMessage = "+CMGR:"
	RespRegHome     = "+CREG: 0,1"
	RespRegRoaming  = "+CREG: 0,5"
	RespSentMessage = "+CMGS:"
)

// Bring-up commands, in the order the initializer issues them.
const (
	CmdEchoOff      = "ATE0"
	CmdAt           = "AT"
	CmdStorage      = `AT+CPMS="SM","SM","SM"`
	CmdSetTextMode  = "AT+CMGF=1"
	CmdNotify       = "AT+CNMI=2,1,0,0,0"
	CmdRegistration = "AT+CREG?"
)

// Message commands. The formatted ones take the storage index or the
// recipient number.
const (
	CmdClock         = "AT+CCLK?"
	CmdReadMessage   = "AT+CMGR=%d"
	CmdDeleteMessage = "AT+CMGD=%d"
	CmdSendMessage   = `AT+CMGS="%s"`
)

// Terminator is the byte that ends a text-mode message body.
const Terminator byte = 26

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CREG: ...)
	TypePrompt                     // SMS input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	default:
		return "unknown"
	}
}
