package main

import (
	"log"

	"shop-finder/cmd"
	_ "shop-finder/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
