package config

import (
	"log/slog"
	"os"
)

// JwtKey signs and verifies every token: REST requests and the websocket
// handshake use the same secret.
var JwtKey []byte

func LoadJwtKey() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("JWT_SECRET environment variable is not set")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
