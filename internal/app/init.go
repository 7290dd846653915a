package app

import (
	"errors"
	"fmt"
	"os"

	"camcheck/internal/config"
	"camcheck/internal/encryption"
)

// InitResult describes what InitConfig did.
type InitResult struct {
	Config        *config.Config
	CreatedConfig bool
	CreatedKeys   bool
}

// InitConfig writes cfg to path and sets up its encryption keys.
//
// The passphrase is collected before anything is written, so a failed or
// mismatched prompt leaves no config behind. When a config already exists at
// path it is kept as is, and only missing keys are created; rerunning init
// after an interrupted setup finishes the job.
func InitConfig(path string, cfg *config.Config, newPassphrase PassphraseFunc) (*InitResult, error) {
	res := &InitResult{Config: cfg}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		existing, err := config.ReadFromFile(path)
		if err != nil {
			return nil, err
		}
		res.Config = existing
	case errors.Is(err, os.ErrNotExist):
		res.CreatedConfig = true
	default:
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(res.Config.Encryption)
	if err != nil {
		return nil, err
	}

	var pass string
	needKeys := !enc.IsConfigured()
	if needKeys {
		if pass, err = newPassphrase(); err != nil {
			return nil, err
		}
	}

	if res.CreatedConfig {
		if err := config.Init(path, res.Config); err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}

	if needKeys {
		if err := enc.Setup(pass); err != nil {
			return res, fmt.Errorf("setting up encryption: %w", err)
		}
		res.CreatedKeys = true
	}
	return res, nil
}
