package main

import "github.com/timvw/pane-deck/cmd"

func main() {
	cmd.Execute()
}
