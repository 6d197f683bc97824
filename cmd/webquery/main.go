// Package main is the entry point of the webquery command line.
package main

import "github.com/grafana/webquery/internal/cmd"

func main() {
	cmd.Execute()
}
