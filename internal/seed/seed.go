package seed

import (
	"context"
	"fmt"
	"log"

	"unitoku/internal/database"
	"unitoku/internal/models"
	"unitoku/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	// CoursesPerUser fills that many timetable slots per user.
	CoursesPerUser int
	// EvaluationsPerCourse reviews are written by random users.
	EvaluationsPerCourse int
	ShouldClean          bool
	DryRun               bool
	SkipBcrypt           bool
	MaxDays              int
	BatchSize            int
	RandSeed             int64
}

// Result counts what a Seed run created.
type Result struct {
	Categories  int64
	Users       int
	Posts       int
	Comments    int
	Likes       int
	Courses     int
	Evaluations int
}

// Categories inserts the catalog's categories that are missing.
func Categories(ctx context.Context, db *gorm.DB, catalog *Catalog) (int64, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return repository.NewCategoryRepository(db).EnsureDefaults(ctx, catalog.CategoryModels())
}

// Seed populates the database with demo data.
func Seed(ctx context.Context, db *gorm.DB, catalog *Catalog, opts Options) (*Result, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	log.Printf("seeding %d users and %d posts (dry-run=%v)", opts.NumUsers, opts.NumPosts, opts.DryRun)
	res := &Result{}

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	var categories []models.Category
	if opts.DryRun {
		categories = catalog.CategoryModels()
	} else {
		n, err := Categories(ctx, db, catalog)
		if err != nil {
			return nil, fmt.Errorf("seed categories: %w", err)
		}
		res.Categories = n
		if err := db.WithContext(ctx).Order("sort_order").Find(&categories).Error; err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
	}

	f := NewFactory(db, catalog, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", res.Users)
	if len(users) == 0 {
		return res, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.fake.Number(0, len(users)-1)]
		category := categories[f.fake.Number(0, len(categories)-1)]
		posts = append(posts, f.BuildPost(author, category))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	res.Posts = len(posts)
	log.Printf("✓ %d posts created", res.Posts)

	for _, p := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			commenter := users[f.fake.Number(0, len(users)-1)]
			if _, err := f.CreateComment(commenter, p); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			res.Comments++
		}
		// Each user likes a post at most once.
		for _, u := range users {
			if u.ID == p.UserID || f.fake.Number(1, 4) != 1 {
				continue
			}
			if err := f.CreateLike(u, p); err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			res.Likes++
		}
	}
	log.Printf("✓ %d comments and %d likes created", res.Comments, res.Likes)

	slots := len(models.Weekdays) * models.PeriodCount
	for _, u := range users {
		perm := f.fake.ShuffleInts
		order := make([]int, slots)
		for i := range order {
			order[i] = i
		}
		perm(order)
		for _, slot := range order[:min(opts.CoursesPerUser, slots)] {
			day := models.Weekdays[slot/models.PeriodCount]
			course, err := f.CreateCourse(u, day, slot%models.PeriodCount+1)
			if err != nil {
				return nil, fmt.Errorf("create course: %w", err)
			}
			res.Courses++
			for i := 0; i < opts.EvaluationsPerCourse; i++ {
				reviewer := users[f.fake.Number(0, len(users)-1)]
				if _, err := f.CreateEvaluation(reviewer, course); err != nil {
					return nil, fmt.Errorf("create evaluation: %w", err)
				}
				res.Evaluations++
			}
		}
	}
	log.Printf("✓ %d courses and %d evaluations created", res.Courses, res.Evaluations)

	log.Println("database seeding completed")
	return res, nil
}

func clearData(db *gorm.DB) error {
	log.Println("clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE notifications, chat_messages, chat_participants, chat_rooms,
			evaluation_likes, course_evaluations, courses, comment_likes, comments, favorites,
			post_likes, posts, users RESTART IDENTITY CASCADE`).Error
	}
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if _, isCategory := all[i].(*models.Category); isCategory {
			continue
		}
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(all[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
