package main

import (
	"log"

	"github.com/forestrie/go-blobsign/cmd/blobsign/cli"
)

func main() {
	log.SetFlags(0)

	if err := cli.New().Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}
