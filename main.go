package main

import (
	"log"

	"github.com/clawdbot/handshake-responder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
