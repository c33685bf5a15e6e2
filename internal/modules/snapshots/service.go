package snapshots

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
	"github.com/foliotrack/foliotrack/internal/modules/accounts"
	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	"github.com/foliotrack/foliotrack/internal/modules/marketdata"
	"github.com/foliotrack/foliotrack/internal/modules/trades"
	"github.com/foliotrack/foliotrack/internal/valuation"
)

// Service loads stores, runs the valuation core, and persists the
// resulting snapshots. All fetching happens here; the core itself only
// ever sees pre-resolved inputs.
type Service struct {
	trades     *trades.Repository
	flows      *cashflows.Repository
	accounts   *accounts.Repository
	snapshots  *Repository
	symPrices  *marketdata.Repository
	priceCache *marketdata.Cache
	policy     valuation.Policy
	log        zerolog.Logger
}

// NewService creates a new snapshot service
func NewService(
	tradesRepo *trades.Repository,
	flowsRepo *cashflows.Repository,
	accountsRepo *accounts.Repository,
	snapshotsRepo *Repository,
	symPricesRepo *marketdata.Repository,
	priceCache *marketdata.Cache,
	policy valuation.Policy,
	log zerolog.Logger,
) *Service {
	return &Service{
		trades:     tradesRepo,
		flows:      flowsRepo,
		accounts:   accountsRepo,
		snapshots:  snapshotsRepo,
		symPrices:  symPricesRepo,
		priceCache: priceCache,
		policy:     policy,
		log:        log.With().Str("service", "snapshots").Logger(),
	}
}

// loadInputs fetches everything the valuation core needs, once per run
func (s *Service) loadInputs() (valuation.Inputs, error) {
	allTrades, err := s.trades.GetAll()
	if err != nil {
		return valuation.Inputs{}, fmt.Errorf("failed to load trades: %w", err)
	}
	allFlows, err := s.flows.GetAll()
	if err != nil {
		return valuation.Inputs{}, fmt.Errorf("failed to load cash flows: %w", err)
	}
	class, err := s.accounts.Classification()
	if err != nil {
		return valuation.Inputs{}, fmt.Errorf("failed to load classification: %w", err)
	}

	// Known accounts are the ones with a metadata row or recorded
	// capital. A flow-only account is known but unclassified; an id that
	// appears only on trades gets flagged by the aggregator.
	knownSet := make(map[string]struct{}, len(class))
	for id := range class {
		knownSet[id] = struct{}{}
	}
	for _, f := range allFlows {
		knownSet[f.AccountID] = struct{}{}
	}
	known := keys(knownSet)

	return valuation.Inputs{
		Trades:         allTrades,
		Flows:          allFlows,
		Prices:         s.priceCache,
		Classification: class,
		KnownAccounts:  known,
	}, nil
}

// Compute assembles one view's snapshot at asOf without persisting it.
// Used by the live API endpoints.
func (s *Service) Compute(view domain.View, asOf time.Time) (valuation.Result, error) {
	in, err := s.loadInputs()
	if err != nil {
		return valuation.Result{}, err
	}
	return valuation.Assemble(view, asOf, in, s.policy), nil
}

// ComputeAccount assembles a single account's snapshot at asOf without
// persisting it
func (s *Service) ComputeAccount(accountID string, asOf time.Time) (valuation.Result, error) {
	in, err := s.loadInputs()
	if err != nil {
		return valuation.Result{}, err
	}
	return valuation.AssembleAccount(accountID, asOf, in), nil
}

// RunResult summarises one persisted snapshot run
type RunResult struct {
	Date            time.Time `json:"snapshot_date"`
	Views           int       `json:"views"`
	Accounts        int       `json:"accounts"`
	MissingPrices   []string  `json:"missing_prices,omitempty"`
	UnknownAccounts []string  `json:"unknown_accounts,omitempty"`
}

// ComputeAndStore assembles and persists snapshots for every view and
// every classified account at asOf, then captures the open-symbol
// prices that backed the run. Re-running for the same date overwrites
// the day's records.
func (s *Service) ComputeAndStore(asOf time.Time) (RunResult, error) {
	in, err := s.loadInputs()
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{Date: asOf}
	missing := make(map[string]struct{})
	unknown := make(map[string]struct{})

	for _, view := range domain.AllViews {
		out := valuation.Assemble(view, asOf, in, s.policy)
		if err := s.snapshots.Upsert(out.Snapshot); err != nil {
			return res, err
		}
		res.Views++
		collect(missing, out.MissingPrices)
		collect(unknown, out.UnknownAccounts)
	}

	for _, accountID := range in.KnownAccounts {
		out := valuation.AssembleAccount(accountID, asOf, in)
		if err := s.snapshots.Upsert(out.Snapshot); err != nil {
			return res, err
		}
		res.Accounts++
		collect(missing, out.MissingPrices)
	}

	if err := s.storeSymbolPrices(asOf); err != nil {
		// Price capture is auxiliary; the snapshots themselves are in.
		s.log.Warn().Err(err).Msg("Failed to store snapshot symbol prices")
	}

	res.MissingPrices = keys(missing)
	res.UnknownAccounts = keys(unknown)

	s.log.Info().
		Time("as_of", asOf).
		Int("views", res.Views).
		Int("accounts", res.Accounts).
		Strs("missing_prices", res.MissingPrices).
		Strs("unknown_accounts", res.UnknownAccounts).
		Msg("Snapshot run complete")

	return res, nil
}

// storeSymbolPrices writes the cached LTP of every open symbol to the
// database table that survives a cache wipe
func (s *Service) storeSymbolPrices(asOf time.Time) error {
	symbols, err := s.trades.OpenSymbols()
	if err != nil {
		return err
	}

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if p, ok := s.priceCache.Price(symbol); ok && p > 0 {
			prices[symbol] = p
		}
	}
	return s.symPrices.ReplaceAll(prices, asOf)
}

func collect(set map[string]struct{}, vals []string) {
	for _, v := range vals {
		set[v] = struct{}{}
	}
}

func keys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
