package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const (
	DefaultPath = "dwh.cfg"

	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 30 * time.Minute
	DefaultDriver       = "postgres"
	DefaultSSLMode      = "require"
	DefaultStateFile    = ".dwh/state.yaml"
	DefaultLogLevel     = "info"
	DefaultLogDir       = ".dwh/logs"
)

// Cluster types accepted by DWH_CLUSTER_TYPE.
const (
	SingleNode = "single-node"
	MultiNode  = "multi-node"
)

// Config is the full pipeline configuration read from dwh.cfg.
type Config struct {
	AWS      Credentials
	Cluster  ClusterSpec
	Role     RoleSpec
	S3       Sources
	Pipeline Settings
}

// Credentials are the static AWS keys from the [AWS] section.
type Credentials struct {
	Key    string
	Secret string
}

// ClusterSpec describes the warehouse cluster. Identifier is the lookup key
// for every cluster operation.
type ClusterSpec struct {
	Identifier     string
	ClusterType    string
	NodeType       string
	NumNodes       int
	DBName         string
	MasterUser     string
	MasterPassword string
	Port           int
	Region         string
}

// RoleSpec names the IAM role the cluster assumes and the policy attached to it.
type RoleSpec struct {
	RoleName  string
	PolicyARN string
}

// Sources are the S3 locations staged by COPY.
type Sources struct {
	LogData     string
	LogJSONPath string
	SongData    string
}

// Settings holds the optional [PIPELINE] section.
type Settings struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	DBDriver      string
	SSLMode       string
	QueryFile     string
	SkipPreflight bool
	StateFile     string
	LogLevel      string
	LogDir        string
}

// MissingFieldsError lists every required key absent from the file.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required config values: %s", strings.Join(e.Fields, ", "))
}

type field struct {
	section, key string
	dst          *string
}

// Load reads and parses the INI file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:              true,
		SpaceBeforeInlineComment: true,
	}, ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	var numNodes, port string
	required := []field{
		{"AWS", "KEY", &cfg.AWS.Key},
		{"AWS", "SECRET", &cfg.AWS.Secret},
		{"CLUSTER", "DWH_CLUSTER_TYPE", &cfg.Cluster.ClusterType},
		{"CLUSTER", "DWH_NUM_NODES", &numNodes},
		{"CLUSTER", "DWH_NODE_TYPE", &cfg.Cluster.NodeType},
		{"CLUSTER", "CLUSTER_IDENTIFIER", &cfg.Cluster.Identifier},
		{"CLUSTER", "DB_NAME", &cfg.Cluster.DBName},
		{"CLUSTER", "DB_USER", &cfg.Cluster.MasterUser},
		{"CLUSTER", "DB_PASSWORD", &cfg.Cluster.MasterPassword},
		{"CLUSTER", "DB_PORT", &port},
		{"IAM", "DWH_IAM_ROLE_NAME", &cfg.Role.RoleName},
		{"IAM", "DWH_IAM_POLICY", &cfg.Role.PolicyARN},
		{"REGION", "REGION_NAME", &cfg.Cluster.Region},
		{"S3", "LOG_DATA", &cfg.S3.LogData},
		{"S3", "LOG_JSONPATH", &cfg.S3.LogJSONPath},
		{"S3", "SONG_DATA", &cfg.S3.SongData},
	}

	var missing []string
	for _, fl := range required {
		v := unquote(f.Section(fl.section).Key(fl.key).String())
		if v == "" {
			missing = append(missing, fl.section+"."+fl.key)
			continue
		}
		*fl.dst = v
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	if cfg.Cluster.NumNodes, err = positiveInt("CLUSTER.DWH_NUM_NODES", numNodes); err != nil {
		return nil, err
	}
	if cfg.Cluster.Port, err = positiveInt("CLUSTER.DB_PORT", port); err != nil {
		return nil, err
	}

	if err := cfg.loadSettings(f.Section("PIPELINE")); err != nil {
		return nil, err
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadSettings(sec *ini.Section) error {
	var err error
	s := &c.Pipeline

	if s.PollInterval, err = duration(sec, "POLL_INTERVAL", DefaultPollInterval); err != nil {
		return err
	}
	if s.PollTimeout, err = duration(sec, "POLL_TIMEOUT", DefaultPollTimeout); err != nil {
		return err
	}
	s.DBDriver = sec.Key("DB_DRIVER").MustString(DefaultDriver)
	s.SSLMode = sec.Key("SSL_MODE").MustString(DefaultSSLMode)
	s.QueryFile = unquote(sec.Key("QUERY_FILE").String())
	s.SkipPreflight = sec.Key("SKIP_PREFLIGHT").MustBool(false)
	s.StateFile = sec.Key("STATE_FILE").MustString(DefaultStateFile)
	s.LogLevel = sec.Key("LOG_LEVEL").MustString(DefaultLogLevel)
	s.LogDir = sec.Key("LOG_DIR").MustString(DefaultLogDir)
	return nil
}

// Validate checks values that parse correctly but cannot be used.
func (c *Config) Validate() error {
	var errs []error

	switch c.Cluster.ClusterType {
	case SingleNode:
		if c.Cluster.NumNodes != 1 {
			errs = append(errs, fmt.Errorf("single-node cluster must have DWH_NUM_NODES = 1, got %d", c.Cluster.NumNodes))
		}
	case MultiNode:
		if c.Cluster.NumNodes < 2 {
			errs = append(errs, fmt.Errorf("multi-node cluster needs at least 2 nodes, got %d", c.Cluster.NumNodes))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DWH_CLUSTER_TYPE %q (expected %s or %s)", c.Cluster.ClusterType, SingleNode, MultiNode))
	}

	for name, uri := range map[string]string{
		"S3.LOG_DATA":     c.S3.LogData,
		"S3.LOG_JSONPATH": c.S3.LogJSONPath,
		"S3.SONG_DATA":    c.S3.SongData,
	} {
		if !strings.HasPrefix(uri, "s3://") {
			errs = append(errs, fmt.Errorf("%s must be an s3:// URI, got %q", name, uri))
		}
	}

	if !strings.HasPrefix(c.Role.PolicyARN, "arn:") {
		errs = append(errs, fmt.Errorf("IAM.DWH_IAM_POLICY must be a policy ARN, got %q", c.Role.PolicyARN))
	}

	switch c.Pipeline.DBDriver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or pgx)", c.Pipeline.DBDriver))
	}

	if c.Pipeline.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func positiveInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}

func duration(sec *ini.Section, key string, def time.Duration) (time.Duration, error) {
	if !sec.HasKey(key) {
		return def, nil
	}
	d, err := sec.Key(key).Duration()
	if err != nil {
		return 0, fmt.Errorf("PIPELINE.%s: %w", key, err)
	}
	return d, nil
}

// unquote strips one pair of surrounding single quotes; ini.v1 only handles
// double quotes and backticks.
func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return v[1 : len(v)-1]
	}
	return v
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

// resolveSecrets resolves the AWS keys first so a Secrets Manager lookup
// for the DB password can use them and the configured region.
func (c *Config) resolveSecrets() error {
	var err error
	regionOnly := LoadOptions(Credentials{}, c.Cluster.Region)
	c.AWS.Key, err = resolveValue(c.AWS.Key, regionOnly...)
	if err != nil {
		return fmt.Errorf("AWS key: %w", err)
	}
	c.AWS.Secret, err = resolveValue(c.AWS.Secret, regionOnly...)
	if err != nil {
		return fmt.Errorf("AWS secret: %w", err)
	}
	c.Cluster.MasterPassword, err = resolveValue(c.Cluster.MasterPassword, LoadOptions(c.AWS, c.Cluster.Region)...)
	if err != nil {
		return fmt.Errorf("DB password: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value. AWS lookups
// use the default credential chain.
func ResolveValue(val string) (string, error) {
	return resolveValue(val)
}

func resolveValue(val string, awsOpts ...LoadOption) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref, awsOpts...)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
