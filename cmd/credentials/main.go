package main

import (
	"flag"
	"fmt"
	"log"

	"filecatalog/internal/config"
	"filecatalog/internal/middleware"
	"filecatalog/internal/pkg/jwt"
	"filecatalog/internal/server"
)

// Mints credentials for local use: a session token signed with JWT_SECRET
// and, on request, a new service API key with its hash.
func main() {
	userID := flag.String("id", "dev-user", "principal id embedded in the token")
	username := flag.String("username", "developer", "username embedded in the token")
	ttl := flag.Duration("ttl", server.TokenTTL, "token lifetime")
	apiKey := flag.Bool("api-key", false, "also generate a service API key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	token, err := jwt.New(cfg.JWTSecret, *ttl).GenerateToken(*userID, *username)
	if err != nil {
		log.Fatalf("token: %v", err)
	}
	fmt.Printf("JWT=%s\n", token)

	if *apiKey {
		key, hash, err := middleware.GenerateAPIKey()
		if err != nil {
			log.Fatalf("api key: %v", err)
		}
		fmt.Printf("API_KEY=%s\n", key)
		fmt.Printf("API_KEY_HASH=%s\n", hash)
	}
}
