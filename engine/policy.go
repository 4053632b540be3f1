package engine

// WaitPolicy selects how a synchronous send decides it is done reading.
type WaitPolicy string

const (
	// PolicyKeyword reads until stopPattern appears in the response
	// buffer or timeoutMs elapses.
	PolicyKeyword WaitPolicy = "keyword"
	// PolicyTimeout always reads for the full timeoutMs window.
	PolicyTimeout WaitPolicy = "timeout"
	// PolicyNone writes and returns immediately without reading
	// anything; the response is left to the async stream.
	PolicyNone WaitPolicy = "none"
	// PolicyATCommand is KEYWORD with the compound AT terminator set.
	PolicyATCommand WaitPolicy = "at_command"
)

// atTerminators are the three strings that end an AT-command response.
// AT_COMMAND succeeds on the first occurrence of any of them.
var atTerminators = []string{"OK\r\n", "ERROR\r\n", "> "}
