// Command seed fills the database with generated demo content.
package main

import (
	"fmt"
	"os"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"

	"github.com/spf13/cobra"
)

func main() {
	if err := newSeedCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	opts.ShouldClean = true

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Populate the database with demo users, posts, comments and suggestions",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeding %d users, %d posts, %d suggestions (clean=%v)\n",
				opts.NumUsers, opts.NumPosts, opts.NumSuggestions, opts.ShouldClean)

			sum, err := seed.Seed(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %d users, %d posts, %d comments, %d likes, %d suggestions, %d votes\n",
				sum.Users, sum.Posts, sum.Comments, sum.PostLikes, sum.Suggestions, sum.SuggestionVotes)
			fmt.Fprintf(out, "All seeded accounts use the password: %s\n", seed.DefaultPassword)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.NumUsers, "users", opts.NumUsers, "Number of users to create")
	f.IntVar(&opts.NumPosts, "posts", opts.NumPosts, "Number of posts to create")
	f.IntVar(&opts.MaxCommentsPerPost, "comments", opts.MaxCommentsPerPost, "Maximum comments per published post")
	f.IntVar(&opts.NumSuggestions, "suggestions", opts.NumSuggestions, "Number of suggestions to create")
	f.IntVar(&opts.MaxDays, "max-days", opts.MaxDays, "How many days back generated timestamps reach")
	f.Int64Var(&opts.RandSeed, "rand-seed", 0, "Fixed random seed for a reproducible run")
	f.BoolVar(&opts.ShouldClean, "clean", opts.ShouldClean, "Delete existing rows before seeding")
	f.BoolVar(&opts.FastHash, "fast-hash", false, "Hash the shared password at minimum bcrypt cost")
	return cmd
}
