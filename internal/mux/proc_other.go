//go:build !unix

package mux

import "os/exec"

// killProcessGroup is a no-op; WaitDelay still bounds the wait.
func killProcessGroup(cmd *exec.Cmd) {}
