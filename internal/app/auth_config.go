package app

import (
	"time"

	"github.com/charlesng35/phonegate/internal/auth"
	"github.com/charlesng35/phonegate/internal/services"
)

const (
	defaultOTPLifetime = 5 * time.Minute
	defaultOTPDigits   = 6
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// PhoneTokenOptions converts OTP settings into phone token service options.
func (c AuthConfig) PhoneTokenOptions() []services.PhoneTokenOption {
	lifetime := c.OTP.Lifetime
	if lifetime <= 0 {
		lifetime = defaultOTPLifetime
	}

	digits := c.OTP.Digits
	if digits <= 0 {
		digits = defaultOTPDigits
	}

	return []services.PhoneTokenOption{
		services.WithOTPLifetime(lifetime),
		services.WithOTPDigits(digits),
	}
}
