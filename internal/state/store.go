package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/internal/risk"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

const (
	riskStateFile    = "risk_state.json"
	paperAccountFile = "paper_account.json"
)

// PaperAccount is the persisted simulated account for paper trading:
// free cash plus open holdings at average entry price.
type PaperAccount struct {
	Cash      float64                   `json:"cash"`
	Holdings  map[string]types.Position `json:"holdings"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Store persists bot state as JSON files under one directory. Writes go
// to a temp file first and are renamed into place, keeping the previous
// version as a backup, so a crash mid-write never corrupts the state.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger zerolog.Logger
}

// NewStore creates a store rooted at dir. Call Initialize before use.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log.With().Str("component", "state_store").Logger(),
	}
}

// Initialize creates the state directory if needed.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.NewDataError("state_store", "initialize", err)
	}
	return nil
}

// SaveRiskState persists the risk tracker state.
func (s *Store) SaveRiskState(rs risk.RiskState) error {
	return s.save(riskStateFile, rs)
}

// LoadRiskState loads the persisted risk state. The second return is
// false when no state has been saved yet.
func (s *Store) LoadRiskState() (risk.RiskState, bool, error) {
	var rs risk.RiskState
	found, err := s.load(riskStateFile, &rs)
	if err != nil {
		return risk.RiskState{}, false, err
	}
	if found && rs.StartingCapital <= 0 {
		s.logger.Warn().Msg("Persisted risk state invalid, starting clean")
		return risk.RiskState{}, false, nil
	}
	return rs, found, nil
}

// SavePaperAccount persists the simulated trading account.
func (s *Store) SavePaperAccount(acct PaperAccount) error {
	acct.UpdatedAt = time.Now().UTC()
	return s.save(paperAccountFile, acct)
}

// LoadPaperAccount loads the persisted paper account. The second return
// is false when no account has been saved yet.
func (s *Store) LoadPaperAccount() (PaperAccount, bool, error) {
	var acct PaperAccount
	found, err := s.load(paperAccountFile, &acct)
	if err != nil {
		return PaperAccount{}, false, err
	}
	if found && acct.Cash < 0 {
		s.logger.Warn().Msg("Persisted paper account invalid, starting clean")
		return PaperAccount{}, false, nil
	}
	return acct, found, nil
}

func (s *Store) save(name string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	backup := path + ".bak"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewDataError("state_store", "save", err)
	}

	if _, err := os.Stat(path); err == nil {
		if current, err := os.ReadFile(path); err == nil {
			if err := os.WriteFile(backup, current, 0o644); err != nil {
				s.logger.Warn().Err(err).Str("file", backup).Msg("Failed to write state backup")
			}
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewDataError("state_store", "save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.NewDataError("state_store", "save", err)
	}

	s.logger.Debug().Str("file", path).Msg("State saved")
	return nil
}

func (s *Store) load(name string, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewDataError("state_store", "load", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.NewDataError("state_store", "load", err)
	}
	return true, nil
}
