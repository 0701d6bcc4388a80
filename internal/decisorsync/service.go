// Package decisorsync runs decisor reconciliation for one account or for
// every eligible account of an organization.
package decisorsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theneilagencia/glimora-sub000/internal/decisor"
	"github.com/theneilagencia/glimora-sub000/internal/metrics"
	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// ErrAccountNotFound is returned by SyncAccount for an unknown account ID.
var ErrAccountNotFound = eris.New("account not found")

// Reconciler reconciles the decisors of one account.
type Reconciler interface {
	DetectForAccount(ctx context.Context, acct model.Account) (*model.ReconcileResult, error)
}

// AccountStore is the part of decisor.Store the orchestrator reads.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccountsWithLinkedInURL(ctx context.Context, filter decisor.AccountFilter) ([]model.Account, error)
}

// Service is the sync entry point used by the CLI, the API and the scheduler.
type Service struct {
	store      AccountStore
	reconciler Reconciler
	metrics    *metrics.Manager
}

// NewService creates a Service. m may be nil.
func NewService(st AccountStore, r Reconciler, m *metrics.Manager) *Service {
	return &Service{store: st, reconciler: r, metrics: m}
}

// SyncAccount reconciles a single account. Scrape and store failures are
// returned to the caller.
func (s *Service) SyncAccount(ctx context.Context, accountID string) (*model.AccountSyncResult, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, eris.Wrapf(err, "decisorsync: load account %s", accountID)
	}
	if acct == nil {
		return nil, eris.Wrapf(ErrAccountNotFound, "decisorsync: account %s", accountID)
	}

	result := &model.AccountSyncResult{AccountID: acct.ID}
	if !acct.HasLinkedInURL() {
		result.Message = fmt.Sprintf("account %s has no linkedin url, nothing to sync", acct.Name)
		return result, nil
	}

	counts, err := s.reconciler.DetectForAccount(ctx, *acct)
	if err != nil {
		s.metrics.AccountSyncFailed()
		return nil, eris.Wrapf(err, "decisorsync: sync account %s", accountID)
	}
	result.ReconcileResult = *counts
	result.Message = fmt.Sprintf("synced decisors for %s", acct.Name)
	return result, nil
}

// SyncOrganization reconciles every account of the organization that has a
// LinkedIn URL, one at a time. A failing account is logged, counted and
// skipped. Only a listing failure is returned as an error. When ctx ends
// mid-run the counts gathered so far come back with Interrupted set.
func (s *Service) SyncOrganization(ctx context.Context, organizationID string) (*model.OrganizationSyncResult, error) {
	log := zap.L().With(zap.String("organization_id", organizationID))

	accounts, err := s.store.ListAccountsWithLinkedInURL(ctx, decisor.AccountFilter{OrganizationID: organizationID})
	if err != nil {
		return nil, eris.Wrapf(err, "decisorsync: list accounts of organization %s", organizationID)
	}

	result := &model.OrganizationSyncResult{OrganizationID: organizationID}
	if len(accounts) == 0 {
		result.Message = fmt.Sprintf("organization %s has no accounts with a linkedin url", organizationID)
		return result, nil
	}

	start := time.Now()
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			result.Interrupted = true
			result.Message = fmt.Sprintf("organization sync interrupted after %d of %d accounts (%d failed)",
				result.AccountsProcessed, len(accounts), result.AccountsFailed)
			log.Warn("decisorsync: organization sync interrupted",
				zap.Int("accounts", result.AccountsProcessed),
				zap.Int("remaining", len(accounts)-result.AccountsProcessed),
				zap.Int("failed", result.AccountsFailed),
				zap.Error(err),
			)
			return result, nil
		}

		result.AccountsProcessed++
		counts, err := s.reconciler.DetectForAccount(ctx, acct)
		if err != nil {
			result.AccountsFailed++
			s.metrics.AccountSyncFailed()
			log.Error("decisorsync: account reconciliation failed, continuing",
				zap.String("account_id", acct.ID),
				zap.String("account", acct.Name),
				zap.Error(err),
			)
			continue
		}
		result.Add(*counts)
	}

	result.Message = fmt.Sprintf("synced decisors for %d accounts (%d failed)", result.AccountsProcessed, result.AccountsFailed)
	log.Info("decisorsync: organization sync complete",
		zap.Int("accounts", result.AccountsProcessed),
		zap.Int("failed", result.AccountsFailed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
