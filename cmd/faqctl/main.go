package main

import (
	"log"
	"os"
)

func main() {
	if err := newApp(openContainer).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
