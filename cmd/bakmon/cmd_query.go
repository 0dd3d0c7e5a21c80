package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"bakmon/internal/config"
	"bakmon/internal/store"
	"bakmon/internal/util"
)

type listOutput struct {
	Backups []store.PublishedState `json:"backups"`
	Summary struct {
		TotalHosts int            `json:"total_hosts"`
		ByVendor   map[string]int `json:"by_vendor"`
	} `json:"summary"`
}

func openStore(configPath string) (*store.SQLite, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return store.OpenSQLite(util.StorePath(cfg.BaseDir, cfg.Store.Path))
}

func listStates(ctx context.Context, configPath, vendor string) error {
	st, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	states, err := st.List(ctx, vendor)
	if err != nil {
		return err
	}

	output := listOutput{Backups: states}
	output.Summary.TotalHosts = len(states)
	output.Summary.ByVendor = make(map[string]int)
	for _, s := range states {
		output.Summary.ByVendor[s.Vendor]++
	}

	return printJSON(output)
}

func getState(ctx context.Context, configPath, vendor, hostname string) error {
	st, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.Get(ctx, hostname, vendor)
	if err != nil {
		return err
	}
	return printJSON(state)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
