package main

import (
	"os"

	"paperTradingBot/cmd/tradectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
