// Seed populates the database with a small set of demo users, posts and
// comments. All records go through the model layer, so identifiers,
// timestamps, hashed passwords and counters come out exactly as the server
// would produce them.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/server/auth"
	"github.com/dmitrijs2005/instafeed/internal/server/config"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
	"github.com/dmitrijs2005/instafeed/internal/server/uploads"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.LoadConfig()

	fmt.Print("Password for the demo accounts: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	store, err := docstore.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	uploadStore, err := uploads.NewDiskStore(cfg.UploadDir, cfg.StaticURLPrefix)
	if err != nil {
		return err
	}

	m, err := models.New(ctx, models.Deps{
		Store:        store,
		HashPassword: auth.PasswordHasher(cfg.AppSecret),
		FileURL:      uploadStore.URL,
	})
	if err != nil {
		return err
	}

	return seed(ctx, m, string(password))
}

func seed(ctx context.Context, m *models.Models, password string) error {
	profiles := []struct {
		name     string
		nickname string
		about    string
		posts    []string
	}{
		{"Ada Lovelace", "ada", "first programmer", []string{"engine.png", "notes.png"}},
		{"Grace Hopper", "grace", "compiler person", []string{"bug.png"}},
		{"Dennis Ritchie", "dmr", "", nil},
	}

	users := make([]*models.User, 0, len(profiles))
	for _, p := range profiles {
		user, err := m.Users.Create(ctx, models.UserPayload{
			Name:      p.name,
			Nickname:  p.nickname,
			Password:  password,
			About:     p.about,
			Following: []string{},
			Followers: []string{},
			Counters:  map[string]int64{"posts": 0},
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", p.nickname, err)
		}
		users = append(users, user)

		for _, file := range p.posts {
			post, err := m.Posts.Create(ctx, models.PostPayload{
				File:   file,
				UserID: user.ID(),
				Feedback: models.Feedback{
					Likes: []string{},
					Saves: []string{},
				},
			})
			if err != nil {
				return fmt.Errorf("seed post %s: %w", file, err)
			}
			if err := user.IncrementCounter(ctx, "posts"); err != nil {
				return err
			}

			_, err = m.Comments.Create(ctx, models.CommentPayload{
				Text:   "first!",
				PostID: post.ID(),
				UserID: user.ID(),
			})
			if err != nil {
				return err
			}
			if err := post.IncrementComments(ctx); err != nil {
				return err
			}
		}
	}

	// Everybody follows the first account.
	for _, u := range users[1:] {
		if err := u.Follow(ctx, users[0].ID()); err != nil {
			return err
		}
	}

	fmt.Printf("seeded %d users\n", len(users))
	return nil
}
