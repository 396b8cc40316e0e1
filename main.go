package main

import "github.com/mselser95/crypto-mcp/cmd"

func main() {
	cmd.Execute()
}
