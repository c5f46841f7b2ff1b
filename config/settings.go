package config

import (
	"secanalytics/notify"

	"golang.org/x/crypto/bcrypt"
)

const maskedValue = "********"

// Masked returns a copy of the config with credentials replaced, suitable
// for printing or serving over the API
func (c *Config) Masked() *Config {
	out := *c
	mask := func(s *string) {
		if *s != "" {
			*s = maskedValue
		}
	}

	mask(&out.Backend.Auth.Password)
	mask(&out.Backend.Auth.SecretAccessKey)
	mask(&out.Backend.Auth.SessionToken)
	mask(&out.Cache.Redis.Password)
	mask(&out.Auth.Password)
	mask(&out.Auth.HashedPassword)
	mask(&out.Auth.JWTSecret)
	mask(&out.Secrets.Vault.Token)
	mask(&out.Secrets.AWS.SecretKey)

	if c.Notifications.Channels != nil {
		out.Notifications.Channels = make([]notify.ChannelConfig, len(c.Notifications.Channels))
		for i, ch := range c.Notifications.Channels {
			if ch.WebhookHeaders != nil {
				headers := make(map[string]string, len(ch.WebhookHeaders))
				for k := range ch.WebhookHeaders {
					headers[k] = maskedValue
				}
				ch.WebhookHeaders = headers
			}
			out.Notifications.Channels[i] = ch
		}
	}
	return &out
}

// CheckPassword reports whether password matches the configured API password hash
func (c *Config) CheckPassword(username, password string) bool {
	if c.Auth.HashedPassword == "" || username != c.Auth.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.Auth.HashedPassword), []byte(password)) == nil
}
