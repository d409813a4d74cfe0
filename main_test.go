package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"redditbots/pkg/anthropic"
	"redditbots/pkg/bot"
	"redditbots/pkg/config"
	"redditbots/pkg/gemini"
	"redditbots/pkg/notify"
	"redditbots/pkg/openai"
	"redditbots/pkg/platform"
)

const testConfigYAML = `
accounts:
  - username: alice
    client_id: id1
    client_secret: s1
    password: p1
  - username: bob
    client_id: id2
    client_secret: s2
    password: p2
subreddits:
  - golang
personalities:
  alice:
    description: "a cheerful gopher"
logging:
  level: error
`

// MockHandle implements platform.Handle and records submissions.
type MockHandle struct {
	Name        string
	Submissions []string
	LookupErr   error
}

func (m *MockHandle) Username(context.Context) (string, error) { return m.Name, nil }

func (m *MockHandle) Subreddit(name string) platform.Subreddit {
	return &mockSubreddit{handle: m, name: name}
}

func (m *MockHandle) Lookup(_ context.Context, fullname string) (platform.Node, error) {
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	return platform.Post{ID: platform.ShortID(fullname), Title: "T", Body: "B"}, nil
}

func (m *MockHandle) Reply(_ context.Context, node platform.Node, text string) (platform.Comment, error) {
	m.Submissions = append(m.Submissions, "reply:"+platform.FullName(node)+":"+text)
	return platform.NewComment("c1", text, platform.FullName(node), nil), nil
}

type mockSubreddit struct {
	handle *MockHandle
	name   string
}

func (s *mockSubreddit) Name() string { return s.name }

func (s *mockSubreddit) Submit(_ context.Context, title, _ string) (platform.Submission, error) {
	s.handle.Submissions = append(s.handle.Submissions, "post:"+s.name+":"+title)
	return platform.Submission{ID: "p1"}, nil
}

func (s *mockSubreddit) Recent(context.Context, int) ([]platform.Post, error) {
	return nil, nil
}

type mockAuthenticator struct {
	handles   map[string]*MockHandle
	lookupErr error
}

func (a *mockAuthenticator) Authenticate(_ context.Context, account config.Account) (platform.Handle, error) {
	h := &MockHandle{Name: account.Username, LookupErr: a.lookupErr}
	a.handles[account.Username] = h
	return h, nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "DISCORD_TOKEN", "SLACK_WEBHOOK_URL"} {
		t.Setenv(key, "")
	}
	cmd := newRootCmdWithApp(a)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_MissingConfigFails(t *testing.T) {
	_, err := execute(t, newApp(), "--config", filepath.Join(t.TempDir(), "missing.yml"), "accounts")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrLoad)
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	path := writeConfig(t, "subreddits: [golang]\n")
	_, err := execute(t, newApp(), "--config", path, "accounts")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrLoad)
	assert.Contains(t, err.Error(), "no accounts configured")
}

func TestAccountsCmd(t *testing.T) {
	out, err := execute(t, newApp(), "--config", writeConfig(t, testConfigYAML), "accounts")
	require.NoError(t, err)

	assert.Contains(t, out, "USERNAME")
	assert.Regexp(t, `1\s+alice\s+dedicated\s+a cheerful gopher`, out)
	assert.Regexp(t, `2\s+bob\s+dedicated\s+-`, out)
}

func TestPostCmd_AllBots(t *testing.T) {
	auth := &mockAuthenticator{handles: map[string]*MockHandle{}}
	a := newApp()
	a.auth = auth

	_, err := execute(t, a, "--config", writeConfig(t, testConfigYAML), "post")
	require.NoError(t, err)

	assert.Equal(t, []string{"post:golang:Default Title"}, auth.handles["alice"].Submissions)
	assert.Equal(t, []string{"post:golang:Default Title"}, auth.handles["bob"].Submissions)
}

func TestPostCmd_OneBot(t *testing.T) {
	auth := &mockAuthenticator{handles: map[string]*MockHandle{}}
	a := newApp()
	a.auth = auth

	_, err := execute(t, a, "--config", writeConfig(t, testConfigYAML), "--bot", "bob", "post")
	require.NoError(t, err)

	assert.Empty(t, auth.handles["alice"].Submissions)
	assert.Len(t, auth.handles["bob"].Submissions, 1)
}

func TestReplyCmd(t *testing.T) {
	auth := &mockAuthenticator{handles: map[string]*MockHandle{}}
	a := newApp()
	a.auth = auth

	_, err := execute(t, a, "--config", writeConfig(t, testConfigYAML), "--bot", "alice", "reply", "t3_abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"reply:t3_abc:Default reply #1"}, auth.handles["alice"].Submissions)
}

func TestReplyCmd_RejectsBadFullname(t *testing.T) {
	auth := &mockAuthenticator{handles: map[string]*MockHandle{}}
	a := newApp()
	a.auth = auth

	_, err := execute(t, a, "--config", writeConfig(t, testConfigYAML), "reply", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, bot.ErrMissingTarget)
	assert.Empty(t, auth.handles)
}

func TestReplyCmd_UnresolvableTargetIsLogged(t *testing.T) {
	auth := &mockAuthenticator{
		handles:   map[string]*MockHandle{},
		lookupErr: fmt.Errorf("%w: t3_gone not found", platform.ErrOperationFailed),
	}
	a := newApp()
	a.auth = auth

	_, err := execute(t, a, "--config", writeConfig(t, testConfigYAML), "--bot", "alice", "reply", "t3_gone")
	require.NoError(t, err)
	assert.Empty(t, auth.handles["alice"].Submissions)
	assert.Empty(t, auth.handles["bob"].Submissions)
}

func TestRunCmd_RequiresSchedule(t *testing.T) {
	_, err := execute(t, newApp(), "--config", writeConfig(t, testConfigYAML), "run")
	assert.EqualError(t, err, "no schedule configured")
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		want     string
	}{
		{provider: "openai", want: "<nil>"},
		{provider: "openai", key: "sk-test", want: fmt.Sprintf("%T", &openai.Client{})},
		{provider: "anthropic", key: "sk-ant", want: fmt.Sprintf("%T", &anthropic.Client{})},
		{provider: "gemini", key: "g-key", want: fmt.Sprintf("%T", &gemini.Client{})},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.key, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Generation.Provider = tt.provider
			switch tt.provider {
			case "openai":
				cfg.OpenAIAPIKey = tt.key
			case "anthropic":
				cfg.AnthropicAPIKey = tt.key
			case "gemini":
				cfg.GeminiAPIKey = tt.key
			}

			c, err := newCompleter(context.Background(), cfg, zap.NewNop())
			require.NoError(t, err)
			if tt.want == "<nil>" {
				assert.Nil(t, c)
				return
			}
			assert.Equal(t, tt.want, fmt.Sprintf("%T", c))
		})
	}
}

func TestNewNotifier(t *testing.T) {
	cfg := &config.Config{}
	n, err := newNotifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, notify.Nop{}, n)

	cfg.Notify.Slack.WebhookURL = "https://hooks.slack.test/x"
	n, err = newNotifier(cfg)
	require.NoError(t, err)
	assert.Len(t, n, 1)

	cfg.Notify.Discord.Token = "token"
	_, err = newNotifier(cfg)
	assert.ErrorContains(t, err, "channel_id")

	cfg.Notify.Discord.ChannelID = "123"
	n, err = newNotifier(cfg)
	require.NoError(t, err)
	assert.Len(t, n, 2)
}

func TestRunCmd_UnknownScheduledBot(t *testing.T) {
	auth := &mockAuthenticator{handles: map[string]*MockHandle{}}
	a := newApp()
	a.auth = auth

	cfg := testConfigYAML + `
schedule:
  - cron: "@hourly"
    command: post
    bot: mallory
`
	_, err := execute(t, a, "--config", writeConfig(t, cfg), "run")
	require.Error(t, err)
	assert.ErrorIs(t, err, bot.ErrAgentNotFound)
}
