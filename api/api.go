// Package api declares the collaborator interfaces the query engine is
// built against. Backends (the in-process document and the remote scripting
// bridge) implement them.
package api
