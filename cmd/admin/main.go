// Package main manages the admin role of unitoku accounts.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"unitoku/internal/cache"
	"unitoku/internal/config"
	"unitoku/internal/database"
	"unitoku/internal/repository"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id|email>   - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id|email>    - Demote user from admin")
	fmt.Println("  go run ./cmd/admin list-admins               - List all admins")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Role changes must evict the API's cached copy of the user.
	cache.InitRedis(cfg.RedisURL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	users := repository.NewUserRepository(db)

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			usage()
		}
		admin := command == "promote"
		user, err := users.Resolve(ctx, os.Args[2])
		if err != nil {
			log.Fatal(err)
		}
		if user.IsAdmin == admin {
			fmt.Printf("User %s (ID: %d) already has is_admin=%t\n", user.Username, user.ID, admin)
			return
		}
		if err := users.SetAdmin(ctx, user.ID, admin); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("✓ User %s (ID: %d) is_admin=%t\n", user.Username, user.ID, admin)
	case "list-admins":
		admins, err := users.ListAdmins(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if len(admins) == 0 {
			fmt.Println("No admins found")
			return
		}
		fmt.Printf("Admins (%d):\n", len(admins))
		for _, u := range admins {
			fmt.Printf("  %d\t%s\t%s\n", u.ID, u.Username, u.Email)
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
	}
}
