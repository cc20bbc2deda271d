package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `[AWS]
KEY = AKIAEXAMPLE
SECRET = wJalrXUtnFEMI

[CLUSTER]
DWH_CLUSTER_TYPE = multi-node
DWH_NUM_NODES = 4
DWH_NODE_TYPE = dc2.large
CLUSTER_IDENTIFIER = dwhCluster
DB_NAME = dwh
DB_USER = dwhuser
DB_PASSWORD = Passw0rd
DB_PORT = 5439

[IAM]
DWH_IAM_ROLE_NAME = dwhRole
DWH_IAM_POLICY = arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess

[REGION]
REGION_NAME = us-west-2

[S3]
LOG_DATA = 's3://udacity-dend/log_data'
LOG_JSONPATH = s3://udacity-dend/log_json_path.json
SONG_DATA = s3://udacity-dend/song_data
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dwh.cfg")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cluster.Identifier != "dwhCluster" {
		t.Errorf("Identifier = %q, want %q", cfg.Cluster.Identifier, "dwhCluster")
	}
	if cfg.Cluster.NumNodes != 4 {
		t.Errorf("NumNodes = %d, want 4", cfg.Cluster.NumNodes)
	}
	if cfg.Cluster.Port != 5439 {
		t.Errorf("Port = %d, want 5439", cfg.Cluster.Port)
	}
	if cfg.Cluster.Region != "us-west-2" {
		t.Errorf("Region = %q, want %q", cfg.Cluster.Region, "us-west-2")
	}
	if cfg.Role.RoleName != "dwhRole" {
		t.Errorf("RoleName = %q, want %q", cfg.Role.RoleName, "dwhRole")
	}
	if cfg.S3.LogData != "s3://udacity-dend/log_data" {
		t.Errorf("LogData = %q, single quotes should be stripped", cfg.S3.LogData)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := cfg.Pipeline
	if p.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", p.PollInterval, DefaultPollInterval)
	}
	if p.PollTimeout != DefaultPollTimeout {
		t.Errorf("PollTimeout = %v, want %v", p.PollTimeout, DefaultPollTimeout)
	}
	if p.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q, want postgres", p.DBDriver)
	}
	if p.SSLMode != "require" {
		t.Errorf("SSLMode = %q, want require", p.SSLMode)
	}
	if p.StateFile != DefaultStateFile {
		t.Errorf("StateFile = %q, want %q", p.StateFile, DefaultStateFile)
	}
	if p.SkipPreflight {
		t.Error("SkipPreflight should default to false")
	}
}

func TestLoadPipelineSection(t *testing.T) {
	content := validConfig + `
[PIPELINE]
POLL_INTERVAL = 10s
POLL_TIMEOUT = 45m
DB_DRIVER = pgx
SSL_MODE = disable
QUERY_FILE = queries.yaml
SKIP_PREFLIGHT = true
LOG_LEVEL = debug
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := cfg.Pipeline
	if p.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", p.PollInterval)
	}
	if p.PollTimeout != 45*time.Minute {
		t.Errorf("PollTimeout = %v, want 45m", p.PollTimeout)
	}
	if p.DBDriver != "pgx" {
		t.Errorf("DBDriver = %q, want pgx", p.DBDriver)
	}
	if p.QueryFile != "queries.yaml" {
		t.Errorf("QueryFile = %q, want queries.yaml", p.QueryFile)
	}
	if !p.SkipPreflight {
		t.Error("SkipPreflight should be true")
	}
	if p.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", p.LogLevel)
	}
}

func TestLoadLowercaseKeys(t *testing.T) {
	content := strings.Replace(validConfig, "CLUSTER_IDENTIFIER = dwhCluster", "cluster_identifier = dwhCluster", 1)
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cluster.Identifier != "dwhCluster" {
		t.Errorf("Identifier = %q, keys should be case-insensitive", cfg.Cluster.Identifier)
	}
}

func TestLoadMissingFields(t *testing.T) {
	content := strings.Replace(validConfig, "DB_PASSWORD = Passw0rd\n", "", 1)
	content = strings.Replace(content, "[REGION]\nREGION_NAME = us-west-2\n", "", 1)

	_, err := Load(writeConfig(t, content))
	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldsError, got %v", err)
	}
	want := []string{"CLUSTER.DB_PASSWORD", "REGION.REGION_NAME"}
	if len(missing.Fields) != len(want) {
		t.Fatalf("missing fields = %v, want %v", missing.Fields, want)
	}
	for i, f := range want {
		if missing.Fields[i] != f {
			t.Errorf("missing.Fields[%d] = %q, want %q", i, missing.Fields[i], f)
		}
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"non-numeric nodes", "DWH_NUM_NODES = 4", "DWH_NUM_NODES = four"},
		{"zero port", "DB_PORT = 5439", "DB_PORT = 0"},
		{"bad poll interval", "[S3]", "[PIPELINE]\nPOLL_INTERVAL = soon\n\n[S3]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validConfig, tt.old, tt.new, 1)
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	t.Setenv("DWH_TEST_PASSWORD", "fromEnv1")
	content := strings.Replace(validConfig, "DB_PASSWORD = Passw0rd", "DB_PASSWORD = ${ENV:DWH_TEST_PASSWORD}", 1)

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cluster.MasterPassword != "fromEnv1" {
		t.Errorf("MasterPassword = %q, want %q", cfg.Cluster.MasterPassword, "fromEnv1")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, validConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"single-node with many nodes", func(c *Config) { c.Cluster.ClusterType = SingleNode }, "single-node"},
		{"multi-node with one node", func(c *Config) { c.Cluster.NumNodes = 1 }, "at least 2 nodes"},
		{"unknown cluster type", func(c *Config) { c.Cluster.ClusterType = "huge" }, "unknown DWH_CLUSTER_TYPE"},
		{"non-s3 source", func(c *Config) { c.S3.SongData = "/tmp/songs" }, "S3.SONG_DATA"},
		{"bad policy", func(c *Config) { c.Role.PolicyARN = "AmazonS3ReadOnlyAccess" }, "DWH_IAM_POLICY"},
		{"bad driver", func(c *Config) { c.Pipeline.DBDriver = "mysql" }, "DB_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestResolveEnvSecret(t *testing.T) {
	t.Setenv("TEST_SECRET", "mysecret")
	val, err := ResolveValue("${ENV:TEST_SECRET}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "mysecret" {
		t.Errorf("expected mysecret, got %s", val)
	}
}

func TestResolveMissingEnvSecret(t *testing.T) {
	t.Setenv("DWH_UNSET_SECRET", "")
	if _, err := ResolveValue("${ENV:DWH_UNSET_SECRET}"); err == nil {
		t.Error("expected error for unset env var")
	}
}

func TestResolvePlainValue(t *testing.T) {
	val, err := ResolveValue("plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "plaintext" {
		t.Errorf("expected plaintext, got %s", val)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/dwh.cfg"); got != filepath.Join(home, "dwh.cfg") {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("dwh.cfg"); got != "dwh.cfg" {
		t.Errorf("ExpandHome() = %q, want unchanged", got)
	}
}
