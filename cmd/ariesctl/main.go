// Package main provides the entry point for ariesctl, the log
// manager's operator-facing inspection and replay CLI.
package main

func main() {
	execute()
}
