package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=deposit_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultPostingParallelism = 8
const defaultDayCountConvention = "DAYS_365"

type Config struct {
	DatabaseDSN        string
	MigrationsDir      string
	PostingParallelism int
	DayCountConvention string
	DryRun             bool
}

func Load() (Config, error) {
	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	parallelism := defaultPostingParallelism
	if raw := strings.TrimSpace(os.Getenv("POSTING_PARALLELISM")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return Config{}, fmt.Errorf("POSTING_PARALLELISM must be a positive integer, got %q", raw)
		}
		parallelism = parsed
	}

	dayCount := strings.ToUpper(strings.TrimSpace(os.Getenv("DAY_COUNT_CONVENTION")))
	if dayCount == "" {
		dayCount = defaultDayCountConvention
	}
	switch dayCount {
	case "DAYS_360", "DAYS_365", "ACTUAL":
	default:
		return Config{}, fmt.Errorf("DAY_COUNT_CONVENTION must be one of DAYS_360, DAYS_365, ACTUAL, got %q", dayCount)
	}

	dryRun := false
	if raw := strings.TrimSpace(os.Getenv("POSTING_DRY_RUN")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("POSTING_DRY_RUN must be a boolean, got %q", raw)
		}
		dryRun = parsed
	}

	return Config{
		DatabaseDSN:        normalizeConnectionString(conn),
		MigrationsDir:      filepath.Join("migrations"),
		PostingParallelism: parallelism,
		DayCountConvention: dayCount,
		DryRun:             dryRun,
	}, nil
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
