package main

import (
	"github.com/netshark/netshark/cmd"
)

func main() {
	cmd.Execute()
}
