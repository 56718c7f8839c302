package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/iamasit07/glicko2-ratings/internal/config"
	"github.com/iamasit07/glicko2-ratings/pkg/auth"
	"github.com/joho/godotenv"
)

// token prints a signed access token for the admin API
func main() {
	subject := flag.String("subject", "admin", "token subject")
	role := flag.String("role", auth.RoleAdmin, "role claim")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL_MINUTES)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	lifetime := cfg.AccessTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.NewTokenIssuer(cfg.JWTSecret, lifetime).GenerateToken(*subject, *role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
	log.Printf("Token for %s (%s) expires at %s", *subject, *role, time.Now().Add(lifetime).Format(time.RFC3339))
}
