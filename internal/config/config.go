package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是数据目录下的配置文件名（可选）。
	FileName = "mymovies.yaml"
	// EnvAPIKey 优先级介于 CLI 与配置文件之间。
	EnvAPIKey = "OMDB_API_KEY"

	StoreJSON   = "json"
	StoreSQLite = "sqlite"

	DefaultProvider = "omdb"
	DefaultPageSize = 10
	DefaultRetry    = 1
	DefaultTimeout  = 20 * time.Second
	DefaultLogLevel = "warn"
)

// CLIArgs 是命令行能覆盖的配置项；空串/false 表示未指定。
type CLIArgs struct {
	DataFile string
	Store    string
	APIKey   string
	Provider string
	LogFile  string
	Verbose  bool
}

// FileConfig 对应 mymovies.yaml。
type FileConfig struct {
	DataFile string       `yaml:"data_file"`
	Store    string       `yaml:"store"`
	PageSize int          `yaml:"page_size"`
	Search   SearchConfig `yaml:"search"`
	Lookup   LookupConfig `yaml:"lookup"`
	Log      LogConfig    `yaml:"log"`
}

type SearchConfig struct {
	StrictFields bool `yaml:"strict_fields"`
}

type LookupConfig struct {
	APIKey      string       `yaml:"api_key"`
	Provider    string       `yaml:"provider"`
	OMDbBaseURL string       `yaml:"omdb_base_url"`
	IMDbBaseURL string       `yaml:"imdb_base_url"`
	Proxy       *ProxyConfig `yaml:"proxy"`
	// Retry 用指针区分“未配置”与显式的 0。
	Retry   *int   `yaml:"retry"`
	Timeout string `yaml:"timeout"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// EffectiveConfig 是合并并规范化后的最终配置，调用方不再做默认值/优先级判断。
type EffectiveConfig struct {
	Dir        string
	ConfigPath string

	DataFile string
	Store    string
	PageSize int

	StrictFields bool

	Provider    string
	OMDbBaseURL string
	IMDbBaseURL string
	ProxyURL    string
	Retry       int
	Timeout     time.Duration

	LogLevel string
	LogFile  string

	apiKey string
}

// APIKey 返回 OMDb key 以及是否已配置。
func (c EffectiveConfig) APIKey() (string, bool) {
	return c.apiKey, c.apiKey != ""
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: config file %q is invalid: %v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: config file %q is invalid", e.Code, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <dir>/mymovies.yaml（不存在不算错误），并与 CLI 参数、环境变量合并。
//
// 优先级（固定）：CLI > 环境变量（仅 api key）> 配置文件 > 内置默认值。
// 相对路径（data_file / log.file）以 dir 为基准。
func LoadEffective(dir string, cli CLIArgs) (EffectiveConfig, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	dirAbs, err := filepath.Abs(dir)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: dir, Err: err}
	}
	cfgPath := filepath.Join(dirAbs, FileName)

	fc, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff, err := merge(dirAbs, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(dir string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		Dir:          dir,
		StrictFields: fc.Search.StrictFields,
	}

	eff.Store = strings.ToLower(firstNonEmpty(cli.Store, fc.Store, StoreJSON))
	if eff.Store != StoreJSON && eff.Store != StoreSQLite {
		return EffectiveConfig{}, fmt.Errorf("store must be json or sqlite, got %q", eff.Store)
	}

	defaultFile := "movies.json"
	if eff.Store == StoreSQLite {
		defaultFile = "movies.db"
	}
	eff.DataFile = absCleanFrom(dir, firstNonEmpty(cli.DataFile, fc.DataFile, defaultFile))

	switch {
	case fc.PageSize == 0:
		eff.PageSize = DefaultPageSize
	case fc.PageSize < 0:
		return EffectiveConfig{}, fmt.Errorf("page_size must be positive, got %d", fc.PageSize)
	default:
		eff.PageSize = fc.PageSize
	}

	eff.apiKey = firstNonEmpty(cli.APIKey, os.Getenv(EnvAPIKey), fc.Lookup.APIKey)

	eff.Provider = strings.ToLower(firstNonEmpty(cli.Provider, fc.Lookup.Provider, DefaultProvider))
	if eff.Provider != "omdb" && eff.Provider != "imdb" {
		return EffectiveConfig{}, fmt.Errorf("lookup.provider must be omdb or imdb, got %q", eff.Provider)
	}

	var err error
	if eff.OMDbBaseURL, err = httpURL("lookup.omdb_base_url", fc.Lookup.OMDbBaseURL); err != nil {
		return EffectiveConfig{}, err
	}
	if eff.IMDbBaseURL, err = httpURL("lookup.imdb_base_url", fc.Lookup.IMDbBaseURL); err != nil {
		return EffectiveConfig{}, err
	}
	if fc.Lookup.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Lookup.Proxy.URL)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("lookup.proxy.url is invalid: %q", eff.ProxyURL)
		}
	}

	eff.Retry = DefaultRetry
	if fc.Lookup.Retry != nil {
		eff.Retry = *fc.Lookup.Retry
	}
	if eff.Retry < 0 || eff.Retry > 5 {
		return EffectiveConfig{}, fmt.Errorf("lookup.retry must be within [0, 5], got %d", eff.Retry)
	}

	eff.Timeout = DefaultTimeout
	if s := strings.TrimSpace(fc.Lookup.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return EffectiveConfig{}, fmt.Errorf("lookup.timeout must be a positive duration, got %q", s)
		}
		eff.Timeout = d
	}

	eff.LogLevel = strings.ToLower(firstNonEmpty(fc.Log.Level, DefaultLogLevel))
	if cli.Verbose {
		eff.LogLevel = "debug"
	}
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.level must be debug, info, warn or error, got %q", eff.LogLevel)
	}
	if f := firstNonEmpty(cli.LogFile, fc.Log.File); f != "" {
		eff.LogFile = absCleanFrom(dir, f)
	}
	return eff, nil
}

func httpURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%s must be an http(s) url, got %q", field, raw)
	}
	return raw, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置；文件不存在返回零值。
func readFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}
