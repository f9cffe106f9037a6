package main

import (
	"github.com/pfrederiksen/speedhive-tools/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
