package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"bakmon/internal/config"
	"bakmon/internal/objstore"
	"bakmon/internal/schema"
	"bakmon/internal/store"
	"bakmon/internal/util"
	"bakmon/internal/validate"
)

func runCheck(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Println("config: OK")

	registry := schema.Builtin()
	for _, vendorCfg := range []struct {
		name    string
		enabled bool
		vendor  string
	}{
		{"device_api", cfg.DeviceAPI.Enabled, cfg.DeviceAPI.Vendor},
		{"s3", cfg.S3.Enabled, cfg.S3.Vendor},
	} {
		if !vendorCfg.enabled {
			continue
		}
		if !slices.Contains(registry.Vendors(), vendorCfg.vendor) {
			return fmt.Errorf("%s: no contract registered for vendor %q", vendorCfg.name, vendorCfg.vendor)
		}
		fmt.Printf("%s vendor %s: OK\n", vendorCfg.name, vendorCfg.vendor)
	}

	st, err := store.OpenSQLite(util.StorePath(cfg.BaseDir, cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	defer st.Close()
	if _, err := st.List(ctx, ""); err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	fmt.Println("state store: OK")

	if cfg.S3.Enabled {
		source, err := objstore.NewSource(ctx, objstore.Config{
			Bucket:           cfg.S3.Bucket,
			Region:           cfg.S3.Region,
			Prefix:           cfg.S3.Prefix,
			Endpoint:         cfg.S3.Endpoint,
			RootDir:          cfg.S3.RootDir,
			Vendor:           cfg.S3.Vendor,
			MaxRetryAttempts: cfg.S3RetryAttempts(),
		}, nil, nil)
		if err != nil {
			return fmt.Errorf("S3 init: %w", err)
		}
		if err := source.VerifyCredentials(ctx); err != nil {
			return fmt.Errorf("S3 credentials: %w", err)
		}
		fmt.Printf("S3 bucket %s: OK\n", cfg.S3.Bucket)
	}

	fmt.Println("all checks passed")
	return nil
}

func checkManifest(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result := validate.Validate(raw, schema.Builtin())
	if result.Accepted() {
		fmt.Printf("accepted: %s/%s, freshness %s\n",
			result.Manifest.Vendor, result.Manifest.Hostname,
			result.Manifest.Freshness().Format("2006-01-02 15:04:05 MST"))
		return nil
	}

	for _, v := range result.Violations {
		fmt.Printf("rejected: %s field=%s %s\n", v.Code, v.Field, v.Detail)
	}
	return fmt.Errorf("manifest rejected with %d violation(s)", len(result.Violations))
}

func printVendors() error {
	registry := schema.Builtin()
	for _, vendor := range registry.Vendors() {
		contract, err := registry.Contract(vendor)
		if err != nil {
			return err
		}
		policy := "any order"
		if contract.Ordering() == schema.OrderPositional {
			policy = "positional"
		}
		fmt.Printf("%s: %d entries (%s), kinds %v\n",
			vendor, contract.EntryCount(), policy, contract.Kinds())
	}
	return nil
}
