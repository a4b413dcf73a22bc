package service

import (
	"log/slog"
	"time"

	"basegraph.app/prsync/internal/azdo"
	"basegraph.app/prsync/internal/ledger"
)

type ServicesConfig struct {
	AzureDevOps           azdo.Client
	Ledger                ledger.Ledger
	EarlyCompletionWindow time.Duration // zero disables early completion suppression
	Logger                *slog.Logger
}

type Services struct {
	azdo   azdo.Client
	ledger ledger.Ledger
	window time.Duration
	logger *slog.Logger
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{
		azdo:   cfg.AzureDevOps,
		ledger: cfg.Ledger,
		window: cfg.EarlyCompletionWindow,
		logger: cfg.Logger,
	}
}

func (s *Services) TransitionGate() TransitionGate {
	return NewTransitionGate(s.azdo, s.logger)
}

func (s *Services) Reconcile() ReconcileService {
	return NewReconcileService(s.ledger, s.azdo, s.TransitionGate(), s.window, s.logger)
}
