package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func assertNoTemp(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFile_ReplaceOverwritesAndCreatesParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	p := filepath.Join(dir, "movies.json")

	if err := WriteFile(p, []byte("[]"), Replace); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFile(p, []byte(`[{"title":"Heat"}]`), Replace); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `[{"title":"Heat"}]` {
		t.Fatalf("内容不一致：%q", string(b))
	}
	assertNoTemp(t, dir, "movies.json")
}

func TestWriteFile_NoOverwriteKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "Heat.nfo")
	if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
		t.Fatalf("准备文件失败：%v", err)
	}

	err := WriteFile(p, []byte("new"), NoOverwrite)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际：%v", err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "old" {
		t.Fatalf("已有文件被覆盖：%q", string(b))
	}
}

func TestWriteFile_RenameFailCleansTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error { return os.ErrPermission }
	defer func() { renameFunc = old }()

	if err := WriteFile(filepath.Join(dir, "movies.json"), []byte("[]"), Replace); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}
	assertNoTemp(t, dir, "movies.json")
	if _, err := os.Stat(filepath.Join(dir, "movies.json")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件：%v", err)
	}
}

func TestWriteFile_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "movies.json")
	if err := os.Mkdir(p, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	for _, mode := range []Mode{Replace, NoOverwrite} {
		err := WriteFile(p, []byte("[]"), mode)
		if !IsPathTypeConflict(err) {
			t.Fatalf("mode=%d：期望 PathTypeConflictError，实际：%T %v", mode, err, err)
		}
	}
}

func TestQuarantine(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "movies.json")
	if err := os.WriteFile(p, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("准备文件失败：%v", err)
	}
	now := time.Unix(1700000000, 0)

	dst, err := Quarantine(p, now)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if want := p + ".corrupt-1700000000"; dst != want {
		t.Fatalf("期望 %q，实际 %q", want, dst)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("原文件应已移走：%v", err)
	}

	// 同一秒再次隔离：不覆盖上一次的副本
	if err := os.WriteFile(p, []byte("{again"), 0o644); err != nil {
		t.Fatalf("准备文件失败：%v", err)
	}
	dst2, err := Quarantine(p, now)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if dst2 == dst {
		t.Fatalf("第二次隔离不应复用路径：%q", dst2)
	}

	missing, err := Quarantine(filepath.Join(dir, "nope.json"), now)
	if err != nil || missing != "" {
		t.Fatalf("文件不存在时应返回空路径，实际 %q err=%v", missing, err)
	}
}
