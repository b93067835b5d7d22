package main

import "github.com/kestrelwallet/walletbridge/cmd/walletbridge/cmd"

func main() {
	cmd.Execute()
}
