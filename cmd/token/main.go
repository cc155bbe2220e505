// Command token signs a bearer token for a user or admin using the service's
// JWT_SECRET. It is meant for local testing and back-office tooling.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"checkout-service/config"
	"checkout-service/internal/auth"

	"github.com/google/uuid"
)

func main() {
	id := flag.String("id", "", "caller id (uuid); a new one is generated when empty")
	admin := flag.Bool("admin", false, "issue an admin token")
	role := flag.String("role", "admin", "admin role claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	callerID := uuid.New()
	if *id != "" {
		callerID, err = uuid.Parse(*id)
		if err != nil {
			log.Fatalf("Invalid id %q: %v", *id, err)
		}
	}

	var caller auth.Caller = auth.User{ID: callerID}
	if *admin {
		caller = auth.Admin{ID: callerID, Role: *role}
	}

	tok, err := auth.NewAuthenticator(cfg.Auth.JWTSecret).Issue(caller, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Fprintln(os.Stdout, tok)
}
