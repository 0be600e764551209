package main

import "github.com/MrEthical07/goGate/cmd/goGate/cmd"

func main() {
	cmd.Execute()
}
