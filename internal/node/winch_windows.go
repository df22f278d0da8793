//go:build windows

package node

// signalChildWinch is a no-op on Windows: there is no SIGWINCH.
func signalChildWinch(pid int) error { return nil }
