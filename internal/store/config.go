package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// ConfigStore holds the configuration singleton.
type ConfigStore struct {
	env *env

	mu  sync.RWMutex
	cfg model.Config
}

func newConfigStore(e *env) *ConfigStore {
	return &ConfigStore{env: e, cfg: model.DefaultConfig()}
}

// load reads the saved config over the defaults, so fields missing from
// older saves keep their default value.
func (s *ConfigStore) load(ctx context.Context) {
	def, err := json.Marshal(model.DefaultConfig())
	if err != nil {
		s.env.log.Warn().Err(err).Msg("failed to encode default config")
		return
	}
	raw := s.env.mirror.LoadConfig(ctx, TableConfig, CacheKey(TableConfig), def)

	cfg := model.DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		s.env.log.Warn().Err(err).Msg("saved config undecodable, using defaults")
		cfg = model.DefaultConfig()
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Get returns the current configuration.
func (s *ConfigStore) Get() model.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg)
}

// IVADefault is the IVA percent new budgets start with.
func (s *ConfigStore) IVADefault() decimal.Decimal {
	return s.Get().IVADefault
}

// ConfigUpdate holds the fields to change; nil fields are left alone. An
// empty Logo clears it.
type ConfigUpdate struct {
	CompanyName  *string
	CUIT         *string
	Address      *string
	Phone        *string
	Email        *string
	Logo         *string
	IVADefault   *decimal.Decimal
	Currency     *string
	Rendimientos *model.PlanParams
}

// Update changes the configuration.
func (s *ConfigStore) Update(u ConfigUpdate) (model.Config, error) {
	s.mu.Lock()
	cfg := cloneConfig(s.cfg)
	setString(&cfg.CompanyName, u.CompanyName)
	setString(&cfg.CUIT, u.CUIT)
	setString(&cfg.Address, u.Address)
	setString(&cfg.Phone, u.Phone)
	setString(&cfg.Email, u.Email)
	setString(&cfg.Currency, u.Currency)
	if u.Logo != nil {
		if *u.Logo == "" {
			cfg.Logo = nil
		} else {
			logo := *u.Logo
			cfg.Logo = &logo
		}
	}
	if u.IVADefault != nil {
		cfg.IVADefault = *u.IVADefault
	}
	if u.Rendimientos != nil {
		cfg.Rendimientos = *u.Rendimientos
	}

	if err := cfg.Validate(); err != nil {
		s.mu.Unlock()
		return model.Config{}, invalid("config", err)
	}
	if err := s.save(cfg); err != nil {
		s.mu.Unlock()
		return model.Config{}, err
	}
	s.mu.Unlock()

	s.env.notify(Change{Table: TableConfig, ID: model.ConfigID, Op: ChangeUpsert})
	return cloneConfig(cfg), nil
}

// Reset restores the default configuration.
func (s *ConfigStore) Reset() (model.Config, error) {
	cfg := model.DefaultConfig()

	s.mu.Lock()
	err := s.save(cfg)
	s.mu.Unlock()
	if err != nil {
		return model.Config{}, err
	}

	s.env.notify(Change{Table: TableConfig, ID: model.ConfigID, Op: ChangeUpsert})
	return cfg, nil
}

// save persists cfg and makes it current; mu must be held.
func (s *ConfigStore) save(cfg model.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	s.env.mirror.SaveConfig(TableConfig, CacheKey(TableConfig), b)
	s.cfg = cfg
	return nil
}

func cloneConfig(c model.Config) model.Config {
	if c.Logo != nil {
		logo := *c.Logo
		c.Logo = &logo
	}
	return c
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
