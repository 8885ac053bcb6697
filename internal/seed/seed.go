// Package seed fills the local gateway database with demo confessions and replies.
// It is intended for development only.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/Rylogix/VentBoard/internal/gateway/local"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/moderation"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much data the seeder creates.
type Options struct {
	Posts int
	// MaxReplies is the upper bound of replies per post.
	MaxReplies int
	// NamedRatio is the share of posts and replies that carry a display name.
	NamedRatio float64
	// MaxDays spreads creation times over this many days before Now.
	MaxDays int
	// Seed makes the output reproducible. Zero picks a random seed.
	Seed int64
	Now  func() time.Time
}

// DefaultOptions is what cmd/seed uses without flags.
var DefaultOptions = Options{Posts: 60, MaxReplies: 6, NamedRatio: 0.3, MaxDays: 14}

// Seeder builds and writes demo data.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder returns a seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.Posts < 0 {
		opts.Posts = 0
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultOptions.MaxDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(opts.Seed)}
}

// Build generates posts without writing them.
func (s *Seeder) Build() []local.ImportedPost {
	now := s.opts.Now().UTC()
	authors := make([]string, 0, s.opts.Posts/2+1)
	for i := 0; i < cap(authors); i++ {
		authors = append(authors, s.faker.UUID())
	}

	posts := make([]local.ImportedPost, 0, s.opts.Posts)
	for i := 0; i < s.opts.Posts; i++ {
		createdAt := now.Add(-s.age())
		post := local.ImportedPost{
			Confession: models.Confession{
				ID:         s.faker.UUID(),
				Content:    s.content(),
				Name:       s.name(),
				CreatedAt:  createdAt,
				Visibility: models.VisibilityPublic,
			},
			UserID: authors[s.faker.Number(0, len(authors)-1)],
		}

		replies := 0
		if s.opts.MaxReplies > 0 {
			replies = s.faker.Number(0, s.opts.MaxReplies)
		}
		at := createdAt
		for j := 0; j < replies; j++ {
			at = at.Add(time.Duration(s.faker.Number(1, 180)) * time.Minute)
			if at.After(now) {
				break
			}
			post.Replies = append(post.Replies, models.Reply{
				ID:        s.faker.UUID(),
				Content:   s.faker.Sentence(s.faker.Number(3, 16)),
				Name:      s.name(),
				UserID:    authors[s.faker.Number(0, len(authors)-1)],
				CreatedAt: at,
			})
		}
		posts = append(posts, post)
	}
	return posts
}

// Run writes a freshly built data set and returns the number of posts and replies.
func (s *Seeder) Run(ctx context.Context) (int, int, error) {
	posts := s.Build()
	if err := local.Import(ctx, s.db, posts); err != nil {
		return 0, 0, fmt.Errorf("import seed data: %w", err)
	}
	replies := 0
	for _, p := range posts {
		replies += len(p.Replies)
	}
	observability.Logger.InfoContext(ctx, "seeded board", "posts", len(posts), "replies", replies)
	return len(posts), replies, nil
}

// ClearAll removes every confession and reply.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if err := local.Clear(ctx, s.db); err != nil {
		return fmt.Errorf("clear board: %w", err)
	}
	return nil
}

func (s *Seeder) age() time.Duration {
	maxMinutes := s.opts.MaxDays * 24 * 60
	return time.Duration(s.faker.Number(1, maxMinutes)) * time.Minute
}

func (s *Seeder) content() string {
	for {
		text := s.faker.Paragraph(1, s.faker.Number(1, 4), s.faker.Number(6, 18), " ")
		if !moderation.ContainsSlur(text) {
			return text
		}
	}
}

// name returns a valid display name for roughly NamedRatio of calls, nil otherwise.
func (s *Seeder) name() *string {
	if s.faker.Float64Range(0, 1) >= s.opts.NamedRatio {
		return nil
	}
	name, err := validation.NormalizeDisplayName(s.faker.FirstName())
	if err != nil {
		return nil
	}
	return name
}
