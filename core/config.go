//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"encoding/json"
	"net/url"
	"os"
	"strings"

	"github.com/defiweb/go-eth/hexutil"
	"github.com/defiweb/go-eth/wallet"
)

// OutputMode selects how results are rendered.
type OutputMode string

const (
	OutputConsole OutputMode = "console"
	OutputJSON    OutputMode = "json"
)

// DefaultRPCURL is used when neither the config file nor the flags name an
// endpoint.
const DefaultRPCURL = "http://localhost:8545"

// Config is the process-wide configuration, read-only after the startup
// merge of defaults, config file and CLI flags.
type Config struct {
	PrivKey string     `json:"priv_key"`
	RPCURL  string     `json:"rpc_url"`
	Out     OutputMode `json:"out"`
	File    string     `json:"file"`
}

// ConfigOverrides carries CLI flag values. Empty fields leave the config
// file or default value in place, CLI always wins over the file.
type ConfigOverrides struct {
	PrivKey    string
	RPCURL     string
	Out        string
	File       string
	ConfigFile string
}

// LoadConfig merges defaults, the optional JSON config file and the CLI
// overrides, then validates the result.
func LoadConfig(overrides ConfigOverrides) (*Config, error) {
	cfg := &Config{
		RPCURL: DefaultRPCURL,
		Out:    OutputConsole,
	}

	if overrides.ConfigFile != "" {
		b, err := os.ReadFile(overrides.ConfigFile)
		if err != nil {
			return nil, validationErrorf("failed to read config file %s: %v", overrides.ConfigFile, err)
		}
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, validationErrorf("failed to parse config file %s: %v", overrides.ConfigFile, err)
		}
	}

	if overrides.PrivKey != "" {
		cfg.PrivKey = overrides.PrivKey
	}
	if overrides.RPCURL != "" {
		cfg.RPCURL = overrides.RPCURL
	}
	if overrides.Out != "" {
		cfg.Out = OutputMode(overrides.Out)
	}
	if overrides.File != "" {
		cfg.File = overrides.File
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.RPCURL)
	if err != nil {
		return validationErrorf("invalid rpc url %q: %v", c.RPCURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validationErrorf("invalid rpc url scheme %q, expected http or https", u.Scheme)
	}
	if u.Host == "" {
		return validationErrorf("invalid rpc url %q, missing host", c.RPCURL)
	}
	if c.Out != OutputConsole && c.Out != OutputJSON {
		return validationErrorf("unknown output mode %q, expected console or json", c.Out)
	}
	if c.PrivKey != "" {
		if _, err := c.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Key returns the configured private key, or nil when no key is set. Key
// absence is not an error here, mutating commands raise a SigningError when
// they actually need to sign.
func (c *Config) Key() (*wallet.PrivateKey, error) {
	if c.PrivKey == "" {
		return nil, nil
	}
	raw := "0x" + strings.TrimPrefix(c.PrivKey, "0x")
	b, err := hexutil.HexToBytes(raw)
	if err != nil {
		return nil, signingErrorf("invalid private key: %v", err)
	}
	if len(b) != 32 {
		return nil, signingErrorf("invalid private key: expected 32 bytes, got %d", len(b))
	}
	return wallet.NewKeyFromBytes(b), nil
}
