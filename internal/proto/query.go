package proto

// QueryType identifies the type of query sent to the server, tagging the
// first element of every outbound query array.
type QueryType int

const (
	QueryStart       QueryType = 1
	QueryContinue    QueryType = 2
	QueryStop        QueryType = 3
	QueryNoreplyWait QueryType = 4
)
