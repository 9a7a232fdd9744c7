package main

import "github.com/MeKo-Tech/cardscan/cmd/cardscan/cmd"

func main() {
	cmd.Execute()
}
