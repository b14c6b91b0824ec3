//go:build !windows

package main

// enableTerminalStatus is a no-op outside Windows: every other platform
// hexterm runs on already interprets ANSI escapes on its terminal.
func enableTerminalStatus() {}
