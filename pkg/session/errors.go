package session

import "fmt"

// Short titles shown to the user ahead of the engine's own message.
const (
	connectErrorTitle = "stagehand could not connect to your database."
	queryErrorTitle   = "stagehand encountered an error while executing your query."
)

// ConnectionError reports a construction-time failure: missing required
// settings or a driver that could not open. Fatal to the connection; no
// degraded connection object is ever returned alongside one.
type ConnectionError struct {
	Title string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %v", e.Title, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func connectionError(err error) *ConnectionError {
	return &ConnectionError{Title: connectErrorTitle, Err: err}
}

// QueryError reports a failure during Execute or FetchAll, carrying the
// engine's original message.
type QueryError struct {
	Title string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %v", e.Title, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func queryError(err error) *QueryError {
	return &QueryError{Title: queryErrorTitle, Err: err}
}
