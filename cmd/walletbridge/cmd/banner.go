package cmd

import (
	"fmt"
)

const banner = `
  _  __        _            _
 | |/ /___ ___| |_ _ __ ___| |
 | ' // _ \ __| __| '__/ _ \ |
 | . \  __\__ \ |_| | |  __/ |
 |_|\_\___|___/\__|_|  \___|_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  WalletConnect Session Bridge - Version %s\x1b[0m\n\n", Version)
}
