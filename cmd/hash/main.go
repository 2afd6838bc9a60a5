// Package main prints the bcrypt hash of a password, using the same length
// rules and cost as account registration. It is used to seed users directly
// in the database, for example in fixtures or a local development database.
//
//	go run ./cmd/hash 'correct horse battery'
package main

import (
	"fmt"
	"os"

	"github.com/rede-de-patas/patas-api/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <password>\n", os.Args[0])
		os.Exit(2)
	}
	hash, err := auth.HashPassword(os.Args[1], auth.DefaultBcryptCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
