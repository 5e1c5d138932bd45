// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"unitoku/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "Unitoku-Seed-2024"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db      *gorm.DB
	opts    Options
	catalog *Catalog
	fake    *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
	hashed string
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, catalog *Catalog, opts Options) *Factory {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, opts: opts, catalog: catalog, fake: gofakeit.New(seed), nextID: 1000}
}

func (f *Factory) password() string {
	if f.opts.SkipBcrypt {
		return DefaultPassword
	}
	if f.hashed == "" {
		h, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		f.hashed = string(h)
	}
	return f.hashed
}

// backdate returns a creation time within the last MaxDays days.
func (f *Factory) backdate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.fake.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) persist(value any, setID func(uint)) error {
	if f.opts.DryRun {
		f.nextID++
		setID(f.nextID)
		return nil
	}
	return f.db.Create(value).Error
}

// CreateUser constructs and persists a sample student.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := strings.ToLower(f.fake.Username()) + fmt.Sprintf("%d", f.fake.Number(100, 9999))
	user := &models.User{
		Username:   username,
		Email:      username + "@example.ac.jp",
		Password:   f.password(),
		StudentID:  f.fake.Numerify("S2#######"),
		Department: f.fake.RandomString(f.catalog.Departments),
		Grade:      f.fake.Number(1, 4),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.persist(user, func(id uint) { user.ID = id }); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post in category without persisting it. Useful for
// batching.
func (f *Factory) BuildPost(user *models.User, category models.Category, overrides ...func(*models.Post)) *models.Post {
	content := f.fake.Paragraph(1, 3, 8, "\n")
	if len(f.catalog.Hashtags) > 0 && f.fake.Bool() {
		content += "\n\n#" + f.fake.RandomString(f.catalog.Hashtags)
	}
	post := &models.Post{
		Title:       strings.TrimSuffix(f.fake.Sentence(5), "."),
		Content:     content,
		UserID:      user.ID,
		CategoryID:  category.ID,
		IsAnonymous: f.fake.Number(1, 10) <= 2,
		ImageURLs:   []string{},
		ViewCount:   f.fake.Number(0, 300),
		CreatedAt:   f.backdate(),
	}
	if f.fake.Number(1, 10) <= 3 {
		post.ImageURLs = []string{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.fake.UUID())}
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	size := f.opts.BatchSize
	if size <= 0 {
		size = 100
	}
	return f.db.CreateInBatches(posts, size).Error
}

// CreateComment persists a comment on post and bumps the post's counter.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:     f.fake.Sentence(f.fake.Number(4, 16)),
		UserID:      user.ID,
		PostID:      post.ID,
		IsAnonymous: f.fake.Number(1, 10) <= 2,
		CreatedAt:   post.CreatedAt.Add(time.Duration(f.fake.Number(1, 72*60)) * time.Minute),
	}
	for _, override := range overrides {
		override(comment)
	}
	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		post.CommentCount++
		return comment, nil
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if comment.ParentID != nil {
			if err := tx.Model(&models.Comment{}).Where("id = ?", *comment.ParentID).
				UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	post.CommentCount++
	return comment, nil
}

// CreateLike persists a like from user on post and bumps the post's counter.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		post.LikeCount++
		return nil
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.PostLike{UserID: user.ID, PostID: post.ID}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return err
	}
	post.LikeCount++
	return nil
}

// CreateCourse persists a course from the catalog in the given slot.
func (f *Factory) CreateCourse(user *models.User, day models.Weekday, period int, overrides ...func(*models.Course)) (*models.Course, error) {
	spec := CourseSpec{Name: f.fake.HipsterWord()}
	if len(f.catalog.Courses) > 0 {
		spec = f.catalog.Courses[f.fake.Number(0, len(f.catalog.Courses)-1)]
	}
	course := &models.Course{
		UserID:    user.ID,
		Name:      spec.Name,
		Professor: spec.Professor,
		Weekday:   day,
		Period:    period,
		Color:     f.fake.RandomString(models.CourseColors),
	}
	if len(f.catalog.Rooms) > 0 {
		course.Room = f.fake.RandomString(f.catalog.Rooms)
	}
	for _, override := range overrides {
		override(course)
	}
	if err := f.persist(course, func(id uint) { course.ID = id }); err != nil {
		return nil, err
	}
	return course, nil
}

// CreateEvaluation persists a review of course written by user.
func (f *Factory) CreateEvaluation(user *models.User, course *models.Course, overrides ...func(*models.CourseEvaluation)) (*models.CourseEvaluation, error) {
	score := func() int { return f.fake.Number(1, 5) }
	eval := &models.CourseEvaluation{
		CourseID:         course.ID,
		UserID:           user.ID,
		AuthorName:       models.AnonymousAuthorName,
		OverallScore:     score(),
		DifficultyScore:  score(),
		AssignmentsScore: score(),
		TeachingScore:    score(),
		GradingScore:     score(),
		Comment:          f.fake.Sentence(f.fake.Number(6, 20)),
		CreatedAt:        f.backdate(),
	}
	if len(f.catalog.Semesters) > 0 {
		eval.Semester = f.fake.RandomString(f.catalog.Semesters)
	}
	for _, override := range overrides {
		override(eval)
	}
	if err := f.persist(eval, func(id uint) { eval.ID = id }); err != nil {
		return nil, err
	}
	return eval, nil
}
