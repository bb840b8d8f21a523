package main

import (
	"log"
	"os"

	"biathlonstats/internal/command"
)

func main() {
	if err := command.Run(os.Args); err != nil {
		log.Fatal(err.Error())
	}
}
