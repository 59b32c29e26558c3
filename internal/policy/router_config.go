// Package policy wires the services, the handlers and the access rules of the API.
package policy

import (
	"time"

	"github.com/diewo77/paintms/internal/auth"
	"github.com/diewo77/paintms/internal/config"
	"github.com/diewo77/paintms/internal/handlers"
	"github.com/diewo77/paintms/internal/printing"
	"github.com/diewo77/paintms/internal/services"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RouterConfig holds configured handlers and middleware for the application.
type RouterConfig struct {
	// Auth attaches the caller identity and rejects anonymous requests
	Auth *auth.Authenticator

	AuthHandler    *handlers.AuthHandler
	ClientHandler  *handlers.ClientHandler
	ProductHandler *handlers.ProductHandler
	InvoiceHandler *handlers.InvoiceHandler
}

// NewRouterConfig creates a fully configured router setup.
// locker may be nil; invoice numbers then rely on the unique index alone.
func NewRouterConfig(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger, locker services.Locker) (*RouterConfig, error) {
	dev := cfg.App.Dev()

	activity := services.NewActivityService(db, log)
	users := services.NewUserService(db, log, activity)
	clients := services.NewClientService(db, log, cfg.App.PhoneRegion)
	products := services.NewProductService(db, log)
	invoices := services.NewInvoiceService(db, log).
		WithNumberRetries(cfg.App.InvoiceNumberRetries)
	if locker != nil {
		invoices = invoices.WithLocker(locker)
	}

	renderer, err := printing.NewRenderer(cfg.App.BusinessName, cfg.App.Currency, time.Local)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	// Tokens of deleted users are refused
	authn := auth.NewAuthenticator(tokens, users.Exists)

	return &RouterConfig{
		Auth:           authn,
		AuthHandler:    handlers.NewAuthHandler(users, activity, tokens, log, dev),
		ClientHandler:  handlers.NewClientHandler(clients, activity, log, dev),
		ProductHandler: handlers.NewProductHandler(products, activity, log, dev),
		InvoiceHandler: handlers.NewInvoiceHandler(invoices, activity, renderer, cfg.App.Currency, log, dev),
	}, nil
}
