package main

import (
	"fmt"

	"github.com/feedora/backend/internal/seed"
	"github.com/spf13/cobra"
)

var seedOpts = seed.DevConfig()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users and activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		seeder := seed.NewSeeder(db)
		rep, err := seeder.Seed(cmd.Context(), seedOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d follows, %d posts, %d recipes, %d comments, %d reactions\n",
			rep.Users, rep.Follows, rep.Posts, rep.Recipes, rep.Comments, rep.Reactions)
		fmt.Fprintf(cmd.OutOrStdout(), "Every seeded account uses the password %q\n", seed.DefaultPassword)
		return printUserTotal(cmd, seeder)
	},
}

var seedCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove seeded accounts and everything they created",
	RunE: func(cmd *cobra.Command, args []string) error {
		seeder := seed.NewSeeder(db)
		removed, err := seeder.Clean(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d seeded users\n", removed)
		return printUserTotal(cmd, seeder)
	},
}

func printUserTotal(cmd *cobra.Command, seeder *seed.Seeder) error {
	total, err := seeder.TotalUsers(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d users in the database\n", total)
	return nil
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Users, "users", seedOpts.Users, "Number of users to create")
	f.IntVar(&seedOpts.PostsPerUser, "posts", seedOpts.PostsPerUser, "Posts per user")
	f.IntVar(&seedOpts.RecipesPerUser, "recipes", seedOpts.RecipesPerUser, "Recipes per user")
	f.IntVar(&seedOpts.CommentsPerPost, "comments", seedOpts.CommentsPerPost, "Comments per post")
	f.Int64Var(&seedOpts.Seed, "seed", 0, "Random seed for reproducible data")
	seedCmd.AddCommand(seedCleanCmd)
}
