package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	envPrefix     = "env:"
	keyringPrefix = "keyring:"
)

// ResolveSecret expands a secret reference. "env:NAME" reads an environment
// variable, "keyring:service/user" reads the OS keychain; anything else is
// returned unchanged.
func ResolveSecret(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, envPrefix):
		name := strings.TrimPrefix(value, envPrefix)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return v, nil
	case strings.HasPrefix(value, keyringPrefix):
		ref := strings.TrimPrefix(value, keyringPrefix)
		service, user, ok := strings.Cut(ref, "/")
		if !ok || service == "" || user == "" {
			return "", fmt.Errorf("keyring reference %q must look like keyring:service/user", ref)
		}
		v, err := keyring.Get(service, user)
		if err != nil {
			return "", fmt.Errorf("keychain get %s/%s: %w", service, user, err)
		}
		return v, nil
	default:
		return value, nil
	}
}

type secretField struct {
	name string
	ptr  *string
}

// resolveSecrets expands every credential and API key in place.
func (c *Config) resolveSecrets() error {
	fields := []secretField{
		{"openai_api_key", &c.OpenAIAPIKey},
		{"anthropic_api_key", &c.AnthropicAPIKey},
		{"gemini_api_key", &c.GeminiAPIKey},
		{"notify.discord.token", &c.Notify.Discord.Token},
		{"notify.slack.webhook_url", &c.Notify.Slack.WebhookURL},
	}
	for i := range c.Accounts {
		acc := &c.Accounts[i]
		fields = append(fields,
			secretField{fmt.Sprintf("accounts[%d].client_secret", i), &acc.ClientSecret},
			secretField{fmt.Sprintf("accounts[%d].password", i), &acc.Password},
		)
	}

	for _, f := range fields {
		v, err := ResolveSecret(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = v
	}
	return nil
}
