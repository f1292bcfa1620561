package db

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/subtrack-app/subtrack-backend/pkg/config"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
)

// Client wraps the shared Firebase app and its Firestore handle.
type Client struct {
	app *firebase.App
	fs  *firestore.Client
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxRunner executes a function inside a single Firestore transaction.
type TxRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx *firestore.Transaction) error) error
}

// New boots the Firebase app and Firestore client from configuration.
// With no explicit credentials the SDK uses Application Default Credentials.
func New(ctx context.Context, cfg config.FirebaseConfig, logg *logger.Logger) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.CredentialsJSONBase64 != "":
		raw, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(raw))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening firestore client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "firestore connection established")
	}

	return &Client{app: app, fs: fs}, nil
}

// Firestore returns the underlying Firestore client.
func (c *Client) Firestore() *firestore.Client {
	return c.fs
}

// Auth returns a Firebase Auth client for token verification.
func (c *Client) Auth(ctx context.Context) (*fbauth.Client, error) {
	return c.app.Auth(ctx)
}

// RunTransaction executes fn inside a Firestore transaction. Firestore
// requires all reads to happen before any write within the transaction.
func (c *Client) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx *firestore.Transaction) error) error {
	return c.fs.RunTransaction(ctx, fn)
}

// Ping verifies the datasource is reachable by listing root collections.
func (c *Client) Ping(ctx context.Context) error {
	it := c.fs.Collections(ctx)
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return err
	}
	return nil
}

// Close shuts down the Firestore connection.
func (c *Client) Close() error {
	return c.fs.Close()
}
