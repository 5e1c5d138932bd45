package service

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"unitoku/internal/cache"
	"unitoku/internal/featureflags"
	"unitoku/internal/models"
	"unitoku/internal/observability"
	"unitoku/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen    = 300
	maxContentLen  = 50000
	maxPostImages  = 4
	defaultHotSize = 5
)

// PostService implements the board: listing, reading and writing posts,
// likes and favorites.
type PostService struct {
	posts        repository.PostRepository
	categories   repository.CategoryRepository
	interactions repository.InteractionRepository
	favorites    repository.FavoriteRepository
	history      *HistoryService
	notify       *NotificationService
	flags        *featureflags.Manager
	isAdmin      AdminChecker
}

// PostServiceDeps groups the collaborators of PostService. History, Notify
// and Flags may be nil.
type PostServiceDeps struct {
	Posts        repository.PostRepository
	Categories   repository.CategoryRepository
	Interactions repository.InteractionRepository
	Favorites    repository.FavoriteRepository
	History      *HistoryService
	Notify       *NotificationService
	Flags        *featureflags.Manager
	IsAdmin      AdminChecker
}

func NewPostService(d PostServiceDeps) *PostService {
	flags := d.Flags
	if flags == nil {
		flags = featureflags.NewManager("")
	}
	return &PostService{
		posts:        d.Posts,
		categories:   d.Categories,
		interactions: d.Interactions,
		favorites:    d.Favorites,
		history:      d.History,
		notify:       d.Notify,
		flags:        flags,
		isAdmin:      d.IsAdmin,
	}
}

type ListPostsInput struct {
	CategoryID    uint
	AuthorID      uint
	Query         string
	Sort          models.PostSort
	Limit         int
	Offset        int
	CurrentUserID uint
}

type CreatePostInput struct {
	UserID      uint
	Title       string
	Content     string
	CategoryID  uint
	Hashtags    []string
	IsAnonymous bool
	ImageURLs   []string
}

type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Title      string
	Content    string
	CategoryID uint
	ImageURLs  []string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// LikeResult is the state of a like after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, repository.PostFilter{
		CategoryID: in.CategoryID,
		AuthorID:   in.AuthorID,
		Query:      strings.TrimSpace(in.Query),
		Sort:       in.Sort,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, err
	}
	return s.present(ctx, posts, in.CurrentUserID)
}

// SearchPosts is ListPosts with a required query.
func (s *PostService) SearchPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.ListPosts(ctx, in)
}

// HotPosts returns the most liked posts. The listing is cached briefly and is
// empty for users outside the hot_posts rollout.
func (s *PostService) HotPosts(ctx context.Context, limit int, currentUserID uint) ([]*models.Post, error) {
	if !s.flags.Enabled(featureflags.HotPosts, currentUserID) {
		return []*models.Post{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = defaultHotSize
	}
	posts, err := cache.Aside(ctx, cache.HotPostsCacheKey(limit), cache.HotPostsTTL, func(ctx context.Context) ([]*models.Post, error) {
		return s.posts.Hot(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	SortPosts(posts, models.SortPopular)
	return s.present(ctx, posts, currentUserID)
}

// SortPosts orders posts in place the same way the repository does.
func SortPosts(posts []*models.Post, by models.PostSort) {
	key := func(p *models.Post) int {
		switch by {
		case models.SortPopular:
			return p.LikeCount
		case models.SortCommented:
			return p.CommentCount
		case models.SortViewed:
			return p.ViewCount
		default:
			return 0
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if ka, kb := key(a), key(b); ka != kb {
			return ka > kb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// GetPost loads one post for display. With countView the view counter is
// incremented and a logged-in viewer's read history is updated.
func (s *PostService) GetPost(ctx context.Context, id, currentUserID uint, countView bool) (_ *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "post", "GetPost",
		attribute.Int64("post.id", int64(id)), attribute.Bool("post.count_view", countView))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if countView {
		if err := s.posts.IncrementViewCount(ctx, id); err != nil {
			return nil, err
		}
		post.ViewCount++
		if s.history != nil {
			// History is best effort: a Redis failure must not hide the post.
			if err := s.history.RecordView(ctx, currentUserID, post); err != nil {
				svcLog.LogServiceError(ctx, "post", "GetPost.RecordView", err)
			}
		}
	}
	out, err := s.present(ctx, []*models.Post{post}, currentUserID)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if tooLong(title, maxTitleLen) {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if tooLong(in.Content, maxContentLen) {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	images, err := checkImageURLs(in.ImageURLs)
	if err != nil {
		return nil, err
	}
	if in.IsAnonymous && !s.flags.Enabled(featureflags.AnonymousPosts, in.UserID) {
		return nil, models.NewValidationError("Anonymous posting is not available")
	}

	category, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       title,
		Content:     AppendHashtags(in.Content, in.Hashtags),
		UserID:      in.UserID,
		CategoryID:  category.ID,
		IsAnonymous: in.IsAnonymous,
		ImageURLs:   images,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	svcLog.LogServiceCall(ctx, "post", "CreatePost", map[string]interface{}{"post_id": post.ID, "category_id": category.ID})
	return s.GetPost(ctx, post.ID, in.UserID, false)
}

// resolveCategory returns the chosen category, or the default one, creating
// it when missing.
func (s *PostService) resolveCategory(ctx context.Context, id uint) (*models.Category, error) {
	if id != 0 {
		c, err := s.categories.GetByID(ctx, id)
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewValidationError("Category does not exist")
		}
		return c, err
	}
	c, err := s.categories.GetByName(ctx, models.DefaultCategoryName)
	if !models.IsCode(err, models.CodeNotFound) {
		return c, err
	}
	if _, err := s.categories.EnsureDefaults(ctx, []models.Category{{Name: models.DefaultCategoryName}}); err != nil {
		return nil, err
	}
	return s.categories.GetByName(ctx, models.DefaultCategoryName)
}

func checkImageURLs(urls []string) ([]string, error) {
	if len(urls) > maxPostImages {
		return nil, models.NewValidationError("Too many images (max 4)")
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			return nil, models.NewValidationError("Image URL must not be empty")
		}
		if !isAttachableImageURL(u) {
			return nil, models.NewValidationError("Image URL must be an uploaded image or an https link")
		}
		out = append(out, u)
	}
	return out, nil
}

// isAttachableImageURL accepts images stored by ImageService and absolute
// https links.
func isAttachableImageURL(u string) bool {
	if name, ok := strings.CutPrefix(u, MediaURLPrefix); ok {
		return IsValidImageName(name)
	}
	parsed, err := url.Parse(u)
	return err == nil && parsed.Scheme == "https" && parsed.Host != ""
}

// NormalizeHashtags trims tags, strips leading '#', drops blanks and
// duplicates and returns them as "#tag".
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimLeft(strings.TrimSpace(t), "#＃")
		t = strings.Join(strings.Fields(t), "_")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, "#"+t)
	}
	return out
}

// AppendHashtags adds the normalized tags after a blank line.
func AppendHashtags(content string, tags []string) string {
	norm := NormalizeHashtags(tags)
	if len(norm) == 0 {
		return content
	}
	return strings.TrimRight(content, "\n") + "\n\n" + strings.Join(norm, " ")
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		if tooLong(title, maxTitleLen) {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		post.Title = title
	}
	if strings.TrimSpace(in.Content) != "" {
		if tooLong(in.Content, maxContentLen) {
			return nil, models.NewValidationError("Content too long (max 50000 characters)")
		}
		post.Content = in.Content
	}
	if in.CategoryID != 0 && in.CategoryID != post.CategoryID {
		c, err := s.resolveCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		post.CategoryID = c.ID
		post.Category = c
	}
	if in.ImageURLs != nil {
		images, err := checkImageURLs(in.ImageURLs)
		if err != nil {
			return nil, err
		}
		post.ImageURLs = images
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, post.ID, in.UserID, false)
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if err := allowOwnerOrAdmin(ctx, s.isAdmin, in.UserID, post.UserID, "You can only delete your own posts"); err != nil {
		return err
	}
	return s.posts.Delete(ctx, in.PostID)
}

// ToggleLike flips the user's like on a post. A new like notifies the author.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, LikeResult, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, LikeResult{}, err
	}
	liked, count, err := s.interactions.TogglePostLike(ctx, userID, postID)
	if err != nil {
		return nil, LikeResult{}, err
	}
	cache.InvalidatePost(ctx, postID)
	post.LikeCount = count
	post.Liked = liked

	if liked && s.notify != nil {
		actor := userID
		related := post.ID
		if err := s.notify.Notify(ctx, &models.Notification{
			UserID:        post.UserID,
			ActorID:       &actor,
			Type:          models.NotificationLike,
			Title:         "いいねされました",
			Message:       post.Title,
			RelatedPostID: &related,
		}); err != nil {
			svcLog.LogServiceError(ctx, "post", "ToggleLike.Notify", err)
		}
	}
	return post, LikeResult{Liked: liked, LikeCount: count}, nil
}

// ToggleFavorite adds or removes a bookmark and reports the new state.
func (s *PostService) ToggleFavorite(ctx context.Context, userID, postID uint) (bool, error) {
	return s.favorites.Toggle(ctx, userID, postID)
}

func (s *PostService) ListFavorites(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	posts, err := s.favorites.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, posts, userID)
}

// present fills the viewer's flags and hides anonymous authors.
func (s *PostService) present(ctx context.Context, posts []*models.Post, currentUserID uint) ([]*models.Post, error) {
	if currentUserID != 0 && len(posts) > 0 {
		flags, err := s.interactions.PostFlags(ctx, currentUserID, ids(posts, func(p *models.Post) uint { return p.ID }))
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			f := flags[p.ID]
			p.Liked = f.Liked
			p.Commented = f.Commented
		}
	}
	for _, p := range posts {
		p.Present()
	}
	return posts, nil
}
