package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, p string, b []byte) {
	t.Helper()
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("写入 %s 失败：%v", p, err)
	}
}

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()

	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.DataFile != filepath.Join(dir, "movies.json") {
		t.Fatalf("期望 data_file 默认为 movies.json，实际 %q", eff.DataFile)
	}
	if eff.Store != StoreJSON || eff.PageSize != DefaultPageSize || eff.Provider != DefaultProvider {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.Retry != DefaultRetry || eff.Timeout != DefaultTimeout || eff.LogLevel != DefaultLogLevel {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if _, ok := eff.APIKey(); ok {
		t.Fatalf("未配置时 APIKey 应为缺失")
	}
}

func TestLoadEffective_FileValues(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), []byte(`
store: sqlite
page_size: 5
search:
  strict_fields: true
lookup:
  api_key: file-key
  provider: imdb
  proxy:
    url: http://127.0.0.1:7890
  retry: 0
  timeout: 5s
log:
  level: INFO
  file: logs/mymovies.log
`))

	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Store != StoreSQLite || eff.DataFile != filepath.Join(dir, "movies.db") {
		t.Fatalf("sqlite 默认文件名不符合预期：%q %q", eff.Store, eff.DataFile)
	}
	if eff.PageSize != 5 || !eff.StrictFields || eff.Provider != "imdb" {
		t.Fatalf("字段不符合预期：%+v", eff)
	}
	if eff.Retry != 0 {
		t.Fatalf("显式 retry: 0 应生效，实际 %d", eff.Retry)
	}
	if eff.Timeout != 5*time.Second || eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("网络配置不符合预期：%+v", eff)
	}
	if eff.LogLevel != "info" || eff.LogFile != filepath.Join(dir, "logs", "mymovies.log") {
		t.Fatalf("日志配置不符合预期：%q %q", eff.LogLevel, eff.LogFile)
	}
	if k, ok := eff.APIKey(); !ok || k != "file-key" {
		t.Fatalf("期望 file-key，实际 %q", k)
	}
}

func TestLoadEffective_APIKeyPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), []byte("lookup:\n  api_key: file-key\n"))

	t.Setenv(EnvAPIKey, "env-key")
	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if k, _ := eff.APIKey(); k != "env-key" {
		t.Fatalf("环境变量应覆盖配置文件，实际 %q", k)
	}

	eff, err = LoadEffective(dir, CLIArgs{APIKey: "cli-key", Verbose: true, DataFile: "/tmp/x.json"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if k, _ := eff.APIKey(); k != "cli-key" {
		t.Fatalf("CLI 应覆盖环境变量，实际 %q", k)
	}
	if eff.LogLevel != "debug" || eff.DataFile != "/tmp/x.json" {
		t.Fatalf("CLI 覆盖不符合预期：%+v", eff)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	cases := map[string]string{
		"bad yaml":     "store: [",
		"bad store":    "store: csv",
		"bad provider": "lookup:\n  provider: tmdb",
		"bad retry":    "lookup:\n  retry: 9",
		"bad timeout":  "lookup:\n  timeout: soon",
		"bad base url": "lookup:\n  omdb_base_url: ftp://x",
		"bad level":    "log:\n  level: loud",
		"bad page":     "page_size: -1",
	}
	for name, body := range cases {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), []byte(body))
		_, err := LoadEffective(dir, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v", name, ErrCodeInvalid, err)
		}
	}
}

func TestSaveAPIKey_KeepsOtherKeysAndComments(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	p := filepath.Join(dir, FileName)
	writeFile(t, p, []byte("# my catalog\npage_size: 7\nlookup:\n  api_key: old\n  retry: 2\n"))

	if err := SaveAPIKey(dir, "new-key"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, _ := os.ReadFile(p)
	if !strings.Contains(string(b), "# my catalog") {
		t.Fatalf("注释丢失：\n%s", b)
	}
	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if k, _ := eff.APIKey(); k != "new-key" {
		t.Fatalf("期望 new-key，实际 %q", k)
	}
	if eff.PageSize != 7 || eff.Retry != 2 {
		t.Fatalf("其它字段被改动：%+v", eff)
	}
}

func TestSaveAPIKey_CreatesFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()

	if err := SaveAPIKey(dir, "abc"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if k, ok := eff.APIKey(); !ok || k != "abc" {
		t.Fatalf("期望 abc，实际 %q", k)
	}
	if err := SaveAPIKey(dir, "  "); err == nil {
		t.Fatalf("空 key 应返回错误")
	}
}
