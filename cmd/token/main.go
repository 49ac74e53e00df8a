// Command token prints credentials for operators: an admin JWT for the
// delete endpoint, or a short lived RDS IAM password for manual mysql
// sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/pkg/database"
	"github.com/meech-ward/qr-full-stack/pkg/jwt"
)

func main() {
	kind := flag.String("kind", "admin", `"admin" for a JWT or "rds" for an IAM database token`)
	subject := flag.String("sub", "admin", "subject of the admin token")
	ttl := flag.Duration("ttl", jwt.TokenExpiryAdmin, "lifetime of the admin token")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}
	cfg := config.LoadConfig()

	switch *kind {
	case "admin":
		token, err := jwt.GenerateToken(cfg.JWTSecret, *subject, *ttl)
		if err != nil {
			log.Fatalf("failed to sign token: %v", err)
		}
		fmt.Println(token)
	case "rds":
		if !cfg.Database.UsesIAM() {
			log.Fatal("RDS_ENDPOINT and RDS_IAM_USER must be set")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		provider, err := database.NewIAMTokenProvider(ctx, cfg.Database.Endpoint, cfg.Database.Port, cfg.Database.Region, cfg.Database.User)
		if err != nil {
			log.Fatalf("failed to load aws config: %v", err)
		}
		token, err := provider.Token(ctx)
		if err != nil {
			log.Fatalf("failed to build token: %v", err)
		}
		fmt.Println(token)
	default:
		log.Fatalf("unknown kind %q", *kind)
	}
}
