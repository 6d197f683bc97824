// Package errext contains extensions for normal Go errors that are used in webquery.
package errext

// Exception represents errors that resulted from a script exception raised in
// the browser and contain the stack trace that lead to them.
type Exception interface {
	error
	StackTrace() string
}
