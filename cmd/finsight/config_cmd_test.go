package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finsight/internal/config"
)

func TestRunConfigSetThenShow(t *testing.T) {
	for _, key := range []string{"FINSIGHT_PROVIDER", "API_KEY", "OPENAI_API_KEY", "OPENAI_API_BASE", "OPENAI_BASE_URL"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	root := rootArgs{cfgPath: path}

	var out bytes.Buffer
	if err := runConfig(root, []string{"set", "market_source=csv", "token=sk-secret-token"}, &out); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := out.String(); got != "updated 2 key(s) in "+path+"\n" {
		t.Fatalf("set output = %q", got)
	}
	saved, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if saved.MarketSource != "csv" || saved.Token != "sk-secret-token" {
		t.Fatalf("saved = %+v", saved)
	}

	out.Reset()
	if err := runConfig(root, []string{"show"}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out.String(), "sk-secret-token") {
		t.Fatalf("show must redact the token: %s", out.String())
	}
	if !strings.Contains(out.String(), "sk-sec...") || !strings.Contains(out.String(), "market_source = ") {
		t.Fatalf("unexpected show output: %s", out.String())
	}
}

func TestRunConfigRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	root := rootArgs{cfgPath: path}
	var out bytes.Buffer

	if err := runConfig(root, []string{"set", "top_k=lots"}, &out); err == nil {
		t.Fatalf("expected error for non-integer top_k")
	}
	if err := runConfig(root, []string{"frobnicate"}, &out); err == nil {
		t.Fatalf("expected usage error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rejected input must not write %s", path)
	}

	out.Reset()
	if err := runConfig(root, []string{"path"}, &out); err != nil || out.String() != path+"\n" {
		t.Fatalf("path: out=%q err=%v", out.String(), err)
	}
}
