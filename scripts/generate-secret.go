// Package main is a development utility that generates a random token-signing
// secret and prints it as a .env line, ready to be appended to a local .env
// file read by cmd/server:
//
//	go run ./scripts/generate-secret.go >> .env
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func main() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("PATAS_JWT_SECRET=%s\n", hex.EncodeToString(secret))
}
