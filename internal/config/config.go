// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	OAuth    OAuthConfig
	Payment  PaymentConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	UploadDir   string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// AuthConfig holds secrets and lifetimes for the token and TOTP machinery.
type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SecretKey          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	MagicTokenTTL      time.Duration
	TOTPIssuer         string
	TOTPAlgorithm      string // SHA1, SHA256, SHA512
	OpenRegistration   bool
	FirstSuperuser     string
	FirstSuperuserPass string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether outbound email is configured.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type OAuthConfig struct {
	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	StateHashKey          string // hex, signs the OAuth state cookie
}

type PaymentConfig struct {
	SecretKey string
	BaseURL   string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			UploadDir:   cmd.String("upload-dir"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			SecretKey:          cmd.String("secret-key"),
			AccessTokenTTL:     cmd.Duration("access-token-ttl"),
			RefreshTokenTTL:    cmd.Duration("refresh-token-ttl"),
			MagicTokenTTL:      cmd.Duration("magic-token-ttl"),
			TOTPIssuer:         cmd.String("totp-issuer"),
			TOTPAlgorithm:      cmd.String("totp-algorithm"),
			OpenRegistration:   cmd.Bool("open-registration"),
			FirstSuperuser:     cmd.String("first-superuser"),
			FirstSuperuserPass: cmd.String("first-superuser-password"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			TLS:      cmd.Bool("smtp-tls"),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:        cmd.String("google-client-id"),
			GoogleClientSecret:    cmd.String("google-client-secret"),
			MicrosoftClientID:     cmd.String("microsoft-client-id"),
			MicrosoftClientSecret: cmd.String("microsoft-client-secret"),
			StateHashKey:          cmd.String("oauth-state-key"),
		},
		Payment: PaymentConfig{
			SecretKey: cmd.String("payment-secret-key"),
			BaseURL:   cmd.String("payment-base-url"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	return cfg
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for links in outbound email",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   10,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "upload-dir",
			Value:   "./data/uploads",
			Usage:   "Directory for project media uploads",
			Sources: cli.NewValueSourceChain(cli.EnvVar("UPLOAD_DIR"), toml.TOML("server.upload_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/ripple.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "Secret key for signing access, refresh and magic tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SECRET_KEY"), toml.TOML("auth.secret_key", configFile)),
		},
		&cli.DurationFlag{
			Name:    "access-token-ttl",
			Value:   30 * time.Minute,
			Usage:   "Access token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACCESS_TOKEN_TTL"), toml.TOML("auth.access_token_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "refresh-token-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Refresh token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REFRESH_TOKEN_TTL"), toml.TOML("auth.refresh_token_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "magic-token-ttl",
			Value:   48 * time.Hour,
			Usage:   "Password reset token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAGIC_TOKEN_TTL"), toml.TOML("auth.magic_token_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "totp-issuer",
			Value:   "Ripple",
			Usage:   "Issuer shown in authenticator apps",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOTP_ISSUER"), toml.TOML("auth.totp_issuer", configFile)),
		},
		&cli.StringFlag{
			Name:    "totp-algorithm",
			Value:   "SHA256",
			Usage:   "TOTP HMAC algorithm (SHA1, SHA256, SHA512)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOTP_ALGORITHM"), toml.TOML("auth.totp_algorithm", configFile)),
		},
		&cli.BoolFlag{
			Name:    "open-registration",
			Value:   true,
			Usage:   "Allow self-service signup",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OPEN_REGISTRATION"), toml.TOML("auth.open_registration", configFile)),
		},
		&cli.StringFlag{
			Name:    "first-superuser",
			Usage:   "Email of the bootstrap superuser",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FIRST_SUPERUSER"), toml.TOML("auth.first_superuser", configFile)),
		},
		&cli.StringFlag{
			Name:    "first-superuser-password",
			Usage:   "Password of the bootstrap superuser",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FIRST_SUPERUSER_PASSWORD"), toml.TOML("auth.first_superuser_password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (email disabled when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "From address for outbound email",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Ripple",
			Usage:   "From display name for outbound email",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-client-id",
			Usage:   "Google OAuth client ID",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_CLIENT_ID"), toml.TOML("oauth.google_client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-client-secret",
			Usage:   "Google OAuth client secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_CLIENT_SECRET"), toml.TOML("oauth.google_client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "microsoft-client-id",
			Usage:   "Microsoft OAuth client ID",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MICROSOFT_CLIENT_ID"), toml.TOML("oauth.microsoft_client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "microsoft-client-secret",
			Usage:   "Microsoft OAuth client secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MICROSOFT_CLIENT_SECRET"), toml.TOML("oauth.microsoft_client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "oauth-state-key",
			Usage:   "Hex key for signing the OAuth state cookie",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OAUTH_STATE_KEY"), toml.TOML("oauth.state_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "payment-secret-key",
			Usage:   "Payment gateway secret key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PAYMENT_SECRET_KEY"), toml.TOML("payment.secret_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "payment-base-url",
			Value:   "https://api.paystack.co",
			Usage:   "Payment gateway base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PAYMENT_BASE_URL"), toml.TOML("payment.base_url", configFile)),
		},
	}
}
