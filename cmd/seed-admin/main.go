// seed-admin creates the initial operator account so a fresh deployment has
// a working login.
//
// Usage (from backend directory):
//
//	USERS_FILE=users.json SEED_USERNAME=... SEED_PASSWORD=... go run ./cmd/seed-admin
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/store"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
)

func main() {
	cfg := config.FromEnv()

	username := strings.TrimSpace(os.Getenv("SEED_USERNAME"))
	password := os.Getenv("SEED_PASSWORD")
	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "SEED_USERNAME and SEED_PASSWORD are required")
		os.Exit(2)
	}

	users := store.NewUserStore(cfg.UsersFile)
	if err := users.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize user store: %v\n", err)
		os.Exit(1)
	}

	if err := users.Create(username, password); err != nil {
		if errors.Is(err, utils.ErrorUserExists) {
			fmt.Printf("user %s already exists, nothing to do\n", username)
			return
		}
		fmt.Fprintf(os.Stderr, "failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created user %s in %s\n", username, cfg.UsersFile)
}
