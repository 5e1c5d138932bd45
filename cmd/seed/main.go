// Command main runs the database seeder for unitoku.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"unitoku/internal/config"
	"unitoku/internal/database"
	"unitoku/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPosts := flag.Int("posts", 150, "Number of posts to create")
	comments := flag.Int("comments", 3, "Comments per post")
	courses := flag.Int("courses", 8, "Timetable courses per user")
	evals := flag.Int("evaluations", 1, "Evaluations per course")
	maxDays := flag.Int("days", 60, "Spread post timestamps over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	fast := flag.Bool("fast", false, "Store the plain seed password instead of a bcrypt hash")
	catalogPath := flag.String("catalog", "", "Path to a catalog YAML file (defaults to the built-in catalog)")
	randSeed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	catalog := seed.DefaultCatalog()
	if *catalogPath != "" {
		data, err := os.ReadFile(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to read catalog: %v", err)
		}
		if catalog, err = seed.ParseCatalog(data); err != nil {
			log.Fatalf("Invalid catalog: %v", err)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(context.Background(), db, catalog, seed.Options{
		NumUsers:             *numUsers,
		NumPosts:             *numPosts,
		CommentsPerPost:      *comments,
		CoursesPerUser:       *courses,
		EvaluationsPerCourse: *evals,
		ShouldClean:          *shouldClean,
		DryRun:               *dryRun,
		SkipBcrypt:           *fast,
		MaxDays:              *maxDays,
		BatchSize:            100,
		RandSeed:             *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d posts, %d comments, %d courses, %d evaluations",
		res.Users, res.Posts, res.Comments, res.Courses, res.Evaluations)
	if !*fast {
		log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
	} else {
		log.Println("⚠️  -fast stores unhashed passwords; seeded users cannot log in")
	}
}
