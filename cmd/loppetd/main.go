package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/internal/httpapi"
	"github.com/MarkoPoloResearchLab/loppet/internal/identity"
	"github.com/MarkoPoloResearchLab/loppet/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/loppet/internal/uploads"
	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagDatabaseURL       = "database-url"
	flagListenAddr        = "listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagAdminEmails       = "admin-emails"
	flagGoogleClientID    = "google-client-id"
	flagSessionSigningKey = "session-signing-key"
	flagStorageEndpoint   = "storage-endpoint"
	flagStorageAccessKey  = "storage-access-key"
	flagStorageSecretKey  = "storage-secret-key"
	flagStorageBucket     = "storage-bucket"
	flagStoragePublicURL  = "storage-public-url"
	flagStorageUseSSL     = "storage-use-ssl"

	envPrefix          = "LOPPET"
	defaultDatabaseURL = "sqlite:///tmp/loppet.db"
	defaultListenAddr  = ":8080"
	sessionIssuer      = "loppet"
)

type runtimeConfig struct {
	DatabaseURL       string
	ListenAddr        string
	AllowedOrigins    []string
	AdminEmails       []string
	GoogleClientID    string
	SessionSigningKey string
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StoragePublicURL  string
	StorageUseSSL     bool
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "loppetd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "loppetd",
		Short:         "Loppet marketplace REST server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (postgres:// or sqlite://)")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins (required)")
	cmd.Flags().String(flagAdminEmails, "", "comma-separated list of administrator emails")
	cmd.Flags().String(flagGoogleClientID, "", "Google OAuth client id for credential verification (required)")
	cmd.Flags().String(flagSessionSigningKey, "", "session JWT signing key (required)")
	cmd.Flags().String(flagStorageEndpoint, "", "MinIO endpoint for image storage")
	cmd.Flags().String(flagStorageAccessKey, "", "MinIO access key")
	cmd.Flags().String(flagStorageSecretKey, "", "MinIO secret key")
	cmd.Flags().String(flagStorageBucket, "loppet-images", "MinIO bucket for listing images")
	cmd.Flags().String(flagStoragePublicURL, "", "public base URL for stored images")
	cmd.Flags().Bool(flagStorageUseSSL, false, "use TLS when connecting to MinIO")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flagNames := []string{
		flagDatabaseURL, flagListenAddr, flagAllowedOrigins, flagAdminEmails,
		flagGoogleClientID, flagSessionSigningKey,
		flagStorageEndpoint, flagStorageAccessKey, flagStorageSecretKey,
		flagStorageBucket, flagStoragePublicURL, flagStorageUseSSL,
	}
	for _, flagName := range flagNames {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.AllowedOrigins = httpapi.ParseList(v.GetString(flagAllowedOrigins))
	cfg.AdminEmails = httpapi.ParseList(v.GetString(flagAdminEmails))
	cfg.GoogleClientID = strings.TrimSpace(v.GetString(flagGoogleClientID))
	cfg.SessionSigningKey = v.GetString(flagSessionSigningKey)
	cfg.StorageEndpoint = strings.TrimSpace(v.GetString(flagStorageEndpoint))
	cfg.StorageAccessKey = v.GetString(flagStorageAccessKey)
	cfg.StorageSecretKey = v.GetString(flagStorageSecretKey)
	cfg.StorageBucket = strings.TrimSpace(v.GetString(flagStorageBucket))
	cfg.StoragePublicURL = strings.TrimSpace(v.GetString(flagStoragePublicURL))
	cfg.StorageUseSSL = v.GetBool(flagStorageUseSSL)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%s is required", flagDatabaseURL)
	}
	if len(cfg.AllowedOrigins) == 0 {
		return fmt.Errorf("%s is required", flagAllowedOrigins)
	}
	if cfg.GoogleClientID == "" {
		return fmt.Errorf("%s is required", flagGoogleClientID)
	}
	if cfg.SessionSigningKey == "" {
		return fmt.Errorf("%s is required", flagSessionSigningKey)
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := gormstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	store := gormstore.New(gormDB)
	clock := func() time.Time { return time.Now().UTC() }
	logOption := loppet.WithOperationLogger(&zapOperationLogger{logger: logger})

	accounts, err := loppet.NewAccountService(store, clock, logOption)
	if err != nil {
		return fmt.Errorf("account service init: %w", err)
	}
	listings, err := loppet.NewListingService(store, clock, logOption)
	if err != nil {
		return fmt.Errorf("listing service init: %w", err)
	}
	messages, err := loppet.NewMessageService(store, clock, logOption)
	if err != nil {
		return fmt.Errorf("message service init: %w", err)
	}
	projects, err := loppet.NewProjectService(store, clock, logOption)
	if err != nil {
		return fmt.Errorf("project service init: %w", err)
	}
	races, err := loppet.NewRaceService(store, clock)
	if err != nil {
		return fmt.Errorf("race service init: %w", err)
	}

	verifier, err := identity.NewGoogleVerifier(cfg.GoogleClientID)
	if err != nil {
		return fmt.Errorf("identity verifier init: %w", err)
	}
	sessions, err := identity.NewSessions(identity.SessionConfig{
		SigningKey: []byte(cfg.SessionSigningKey),
		Issuer:     sessionIssuer,
	})
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}

	var uploader httpapi.ImageUploader
	if cfg.StorageEndpoint != "" {
		minioUploader, err := uploads.New(ctx, uploads.Config{
			Endpoint:      cfg.StorageEndpoint,
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			Bucket:        cfg.StorageBucket,
			PublicBaseURL: cfg.StoragePublicURL,
			UseSSL:        cfg.StorageUseSSL,
		})
		if err != nil {
			return fmt.Errorf("image storage init: %w", err)
		}
		uploader = minioUploader
	} else {
		logger.Warn("image storage not configured; uploads disabled")
	}

	server, err := httpapi.NewServer(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminEmails:    cfg.AdminEmails,
	}, httpapi.Dependencies{
		Logger:   logger,
		Accounts: accounts,
		Listings: listings,
		Messages: messages,
		Projects: projects,
		Races:    races,
		Verifier: verifier,
		Sessions: sessions,
		Uploader: uploader,
	})
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	return server.Run(ctx)
}

type zapOperationLogger struct {
	logger *zap.Logger
}

func (zl *zapOperationLogger) LogOperation(ctx context.Context, entry loppet.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("subject", entry.Subject),
		zap.String("subject_id", entry.SubjectID),
		zap.String("status", entry.Status),
	}
	if !entry.ActorID.IsZero() {
		fields = append(fields, zap.String("actor_id", entry.ActorID.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		zl.logger.Warn("operation failed", fields...)
		return
	}
	zl.logger.Info("operation completed", fields...)
}
