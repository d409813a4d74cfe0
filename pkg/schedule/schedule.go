// Package schedule runs configured bot commands on cron expressions.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"redditbots/pkg/bot"
	"redditbots/pkg/config"
	"redditbots/pkg/platform"
)

// cronParser accepts standard 5-field expressions (minute, hour, dom, month,
// dow) and descriptors such as @hourly or @every 30m.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Dispatcher is the part of bot.Manager the scheduler drives.
type Dispatcher interface {
	DispatchToAll(ctx context.Context, cmd bot.Command, target bot.Target)
	DispatchToOne(ctx context.Context, username string, cmd bot.Command, target bot.Target)
	Lookup(ctx context.Context, username, fullname string) (platform.Node, error)
}

type job struct {
	config.Job
	cmd bot.Command
}

// Scheduler fires jobs until stopped. A job whose previous run is still in
// progress is skipped.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	jobs       []job
	logger     *zap.Logger
	ctx        context.Context
}

// New validates every job and registers it. Nothing runs until Start.
func New(jobs []config.Job, d Dispatcher, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		dispatcher: d,
		logger:     logger,
		ctx:        context.Background(),
	}

	for i, jc := range jobs {
		j, sched, err := parseJob(jc)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d]: %w", i, err)
		}
		s.cron.Schedule(sched, cron.FuncJob(func() { s.run(s.ctx, j) }))
		s.jobs = append(s.jobs, j)
	}
	return s, nil
}

func parseJob(jc config.Job) (job, cron.Schedule, error) {
	j := job{Job: jc, cmd: bot.ParseCommand(jc.Command)}
	if !j.cmd.Valid() {
		return job{}, nil, fmt.Errorf("%w: %q", bot.ErrUnknownCommand, jc.Command)
	}
	sched, err := cronParser.Parse(jc.Cron)
	if err != nil {
		return job{}, nil, fmt.Errorf("invalid cron %q: %w", jc.Cron, err)
	}
	switch {
	case j.cmd.NeedsNode():
		if !platform.IsPostRef(jc.Target) && !platform.IsCommentRef(jc.Target) {
			return job{}, nil, fmt.Errorf("%w: %s needs a t3_ or t1_ fullname, got %q", bot.ErrMissingTarget, j.cmd, jc.Target)
		}
	case j.cmd == bot.CommandLearn:
		if jc.Target == "" {
			return job{}, nil, fmt.Errorf("%w: learn needs a subreddit", bot.ErrMissingTarget)
		}
	}
	return j, sched, nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.jobs) }

// Start begins firing jobs. ctx is handed to every dispatch.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("job scheduled", zap.Int("entry", int(e.ID)), zap.Time("next", e.Next))
	}
}

// Stop prevents new runs and waits for running ones, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	log := s.logger.With(zap.String("cron", j.Cron), zap.String("command", string(j.cmd)), zap.String("bot", j.Bot))
	log.Info("job firing")

	var target bot.Target
	switch {
	case j.cmd.NeedsNode():
		node, err := s.dispatcher.Lookup(ctx, j.Bot, j.Target)
		if err != nil {
			log.Error("cannot resolve job target", zap.String("target", j.Target), zap.Error(err))
			return
		}
		target.Node = node
	case j.cmd == bot.CommandLearn:
		target.Subreddit = j.Target
	}

	if j.Bot == "" {
		s.dispatcher.DispatchToAll(ctx, j.cmd, target)
		return
	}
	s.dispatcher.DispatchToOne(ctx, j.Bot, j.cmd, target)
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
