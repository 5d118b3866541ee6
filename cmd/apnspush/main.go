package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tinywideclouds/go-apns/pkg/apns"
	"github.com/tinywideclouds/go-apns/pkg/certificate"
	"github.com/tinywideclouds/go-apns/pkg/payload"
	"github.com/tinywideclouds/go-apns/pkg/token"
)

// dataFlags collects repeated -data key=value pairs.
type dataFlags map[string]string

func (d dataFlags) String() string { return fmt.Sprintf("%v", map[string]string(d)) }

func (d dataFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	d[key] = val
	return nil
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to yaml config file")
		deviceToken = flag.String("device-token", "", "hex device token to push to")
		alertText   = flag.String("alert", "", "alert body text")
		badge       = flag.Int("badge", -1, "badge count (-1 leaves it unset)")
		sound       = flag.String("sound", "", "sound file name")
		topic       = flag.String("topic", "", "apns-topic override")
		apnsID      = flag.String("apns-id", "", "apns-id header (generated when empty)")
		collapseID  = flag.String("collapse-id", "", "apns-collapse-id header")
		pushType    = flag.String("push-type", "alert", "apns-push-type header")
		background  = flag.Bool("background", false, "send a silent content-available push")
		sandbox     = flag.Bool("sandbox", false, "use the sandbox environment")
		expiration  = flag.Duration("ttl", 0, "store-and-forward window (0 means discard immediately)")
		timeout     = flag.Duration("timeout", 30*time.Second, "request timeout")
		data        = dataFlags{}
	)
	flag.Var(data, "data", "custom payload entry, key=value (repeatable)")
	flag.Parse()

	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "apnspush")
	slog.SetDefault(logger)

	// Local credentials often live in a .env next to the binary.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded .env file")
	}

	if *deviceToken == "" {
		logger.Error("Missing required -device-token flag")
		os.Exit(1)
	}

	cfg, err := LoadConfig(*configPath, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}
	if *topic != "" {
		cfg.Topic = *topic
	}
	if *sandbox {
		cfg.Sandbox = true
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		logger.Error("Client setup failed", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	notification, err := buildNotification(cfg, *deviceToken, *alertText, *badge, *sound,
		*apnsID, *collapseID, *pushType, *background, *expiration, data)
	if err != nil {
		logger.Error("Notification setup failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := client.Push(ctx, notification)
	if err != nil {
		logger.Error("Push failed", "err", err)
		os.Exit(1)
	}
	if !res.Sent() {
		logger.Error("Notification rejected",
			"status", res.StatusCode,
			"reason", string(res.Reason),
			"description", res.Reason.Description(),
			"apns_id", res.ApnsID,
		)
		if res.Reason.ShouldRemoveToken() {
			logger.Warn("Device token is no longer valid and should be removed",
				"device_token", *deviceToken, "last_seen", res.Timestamp.Time)
		}
		os.Exit(1)
	}

	logger.Info("Notification accepted", "apns_id", res.ApnsID)
}

// newClient builds a token-identity or certificate-identity client from the
// validated config.
func newClient(cfg *Config, logger *slog.Logger) (*apns.Client, error) {
	opts := []apns.ClientOption{}
	if cfg.Sandbox {
		opts = append(opts, apns.WithSandbox())
	}

	if cfg.TokenKeyFile != "" {
		key, err := token.AuthKeyFromFile(cfg.TokenKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load auth key: %w", err)
		}
		signer, err := token.NewSigner(key, cfg.TokenKeyID, cfg.TokenTeamID)
		if err != nil {
			return nil, fmt.Errorf("failed to create signer: %w", err)
		}
		var sourceOpts []token.SourceOption
		if cfg.TokenRefreshInterval > 0 {
			sourceOpts = append(sourceOpts, token.WithRefreshInterval(cfg.TokenRefreshInterval))
		}
		logger.Debug("Using token identity", "key_id", cfg.TokenKeyID, "team_id", cfg.TokenTeamID)
		return apns.NewTokenClient(token.NewSource(signer, sourceOpts...), opts...), nil
	}

	var (
		cert tls.Certificate
		err  error
	)
	if cfg.CertP12File != "" {
		cert, err = certificate.FromP12File(cfg.CertP12File, cfg.CertP12Password)
	} else {
		cert, err = certificate.FromPemFile(cfg.CertPemFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if cfg.Topic == "" {
		topic, err := certificate.TopicFromCertificate(cert)
		if err != nil {
			return nil, fmt.Errorf("topic not configured and not derivable: %w", err)
		}
		cfg.Topic = topic
		logger.Debug("Derived topic from certificate", "topic", topic)
	}
	logger.Debug("Using certificate identity")
	return apns.NewClient(cert, opts...), nil
}

func buildNotification(cfg *Config, deviceToken, alertText string, badge int, sound,
	apnsID, collapseID, pushType string, background bool, ttl time.Duration, data dataFlags) (*apns.Notification, error) {

	builder := payload.NewBuilder()
	if background {
		builder.ContentAvailable()
	}
	if alertText != "" {
		builder.Alert(alertText)
	}
	if badge >= 0 {
		builder.Badge(badge)
	}
	if sound != "" {
		builder.Sound(sound)
	}
	for key, val := range data {
		builder.Custom(key, val)
	}
	if err := builder.Err(); err != nil {
		return nil, err
	}

	if apnsID == "" {
		apnsID = uuid.NewString()
	}
	priority := apns.PriorityHigh
	if background {
		pushType = string(apns.PushTypeBackground)
		priority = apns.PriorityNormal
	}

	n := &apns.Notification{
		DeviceToken: deviceToken,
		Topic:       cfg.Topic,
		ApnsID:      apnsID,
		CollapseID:  collapseID,
		Priority:    priority,
		PushType:    apns.PushType(pushType),
		Payload:     builder,
	}
	if ttl > 0 {
		n.Expiration = apns.ExpireAt(time.Now().Add(ttl))
	} else {
		n.Expiration = apns.ExpireImmediately()
	}
	return n, nil
}
