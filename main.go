package main

import (
	"log"

	"turn-dispatch/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
