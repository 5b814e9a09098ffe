package main

import "github.com/oshokin/ghost-host/cmd/ghost-ctl/cmd"

func main() {
	cmd.Execute()
}
