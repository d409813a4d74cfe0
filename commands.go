package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"redditbots/pkg/bot"
	"redditbots/pkg/platform"
	"redditbots/pkg/schedule"
)

const shutdownTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	return newRootCmdWithApp(newApp())
}

func newRootCmdWithApp(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "redditbots",
		Short:        "Run a fleet of Reddit bot accounts",
		Long:         "redditbots posts, replies and learns from subreddits as several Reddit accounts, each with its own personality.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "config.yml", "path to the YAML or TOML config file")
	flags.String("log-level", "", "override logging.level (debug, info, warn, error)")
	flags.String("bot", "", "act as this account only (default: every account)")
	if err := a.bindFlags(root); err != nil {
		root.RunE = func(*cobra.Command, []string) error { return err }
		return root
	}

	root.AddCommand(
		newPostCmd(a),
		newReplyCmd(a),
		newLearnCmd(a),
		newRunCmd(a),
		newAccountsCmd(a),
	)
	return root
}

func (a *app) dispatch(ctx context.Context, m *bot.Manager, cmd bot.Command, target bot.Target) {
	if name := a.botFlag(); name != "" {
		m.DispatchToOne(ctx, name, cmd, target)
		return
	}
	m.DispatchToAll(ctx, cmd, target)
}

func newPostCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "post",
		Short: "Generate and submit a post to every configured subreddit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newManager(cmd.Context())
			if err != nil {
				return err
			}
			a.dispatch(cmd.Context(), m, bot.CommandPost, bot.Target{})
			return nil
		},
	}
}

func newReplyCmd(a *app) *cobra.Command {
	var chain bool

	cmd := &cobra.Command{
		Use:   "reply <fullname>",
		Short: "Reply to a post (t3_...) or comment (t1_...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fullname := args[0]
			if !platform.IsPostRef(fullname) && !platform.IsCommentRef(fullname) {
				return fmt.Errorf("%w: %q is not a t3_ or t1_ fullname", bot.ErrMissingTarget, fullname)
			}

			m, err := a.newManager(cmd.Context())
			if err != nil {
				return err
			}
			node, err := m.Lookup(cmd.Context(), a.botFlag(), fullname)
			if err != nil {
				if !errors.Is(err, platform.ErrOperationFailed) {
					err = fmt.Errorf("%w: %w", platform.ErrOperationFailed, err)
				}
				a.logger.Error("cannot resolve reply target", zap.String("target", fullname), zap.Error(err))
				return nil
			}

			command := bot.CommandReply
			if chain {
				command = bot.CommandReplyChain
			}
			a.dispatch(cmd.Context(), m, command, bot.Target{Node: node})
			return nil
		},
	}
	cmd.Flags().BoolVar(&chain, "chain", false, "post replies.chain_length replies, each answering the previous one")
	return cmd
}

func newLearnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "learn <subreddit>",
		Aliases: []string{"learn-and-post"},
		Short:   "Read the newest posts of a subreddit and post something in their style",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newManager(cmd.Context())
			if err != nil {
				return err
			}
			a.dispatch(cmd.Context(), m, bot.CommandLearn, bot.Target{Subreddit: args[0]})
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.Schedule) == 0 {
				return errors.New("no schedule configured")
			}
			ctx := cmd.Context()

			m, err := a.newManager(ctx)
			if err != nil {
				return err
			}
			for i, job := range a.cfg.Schedule {
				if _, ok := m.Bot(job.Bot); job.Bot != "" && !ok {
					return fmt.Errorf("schedule[%d]: %w: %s", i, bot.ErrAgentNotFound, job.Bot)
				}
			}
			s, err := schedule.New(a.cfg.Schedule, m, a.logger.Named("schedule"))
			if err != nil {
				return err
			}

			s.Start(ctx)
			a.logger.Info("scheduler running, press CTRL-C to exit", zap.Int("jobs", s.Len()))
			<-ctx.Done()

			a.logger.Info("shutting down")
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.Stop(stopCtx)
		},
	}
}

func newAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts in rotation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := "dedicated"
			if a.cfg.Rotation.Shared {
				mode = "shared"
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tUSERNAME\tSESSION\tPERSONALITY")
			for i, acc := range a.cfg.Accounts {
				personality := "-"
				if p := a.cfg.PersonalityFor(acc.Username); p.Description != "" {
					personality = p.Description
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, acc.Username, mode, personality)
			}
			return w.Flush()
		},
	}
}
