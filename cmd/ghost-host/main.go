package main

import "github.com/oshokin/ghost-host/cmd/ghost-host/cmd"

func main() {
	cmd.Execute()
}
