package main

import (
	"os"

	"github.com/jamerly/chatbox/cmd/chatbox/cmds"
)

func main() {
	if err := cmds.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
