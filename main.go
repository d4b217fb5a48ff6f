package main

import (
	"os"

	"github.com/shandysiswandi/authpilot/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
