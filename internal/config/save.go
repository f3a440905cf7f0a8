package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const fileHeader = "# finsight configuration; edit by hand or with `finsight config set key=value`.\n"

// Save 把 cfg 写成 TOML；先写临时文件再 rename，写到一半不会留下损坏的配置。
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return errors.New("config path is empty and $HOME is not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(fileHeader); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile 只读取配置文件本身（缺失时为默认值），不叠加环境变量，
// 供 config set 回写时使用，避免把环境里的 token 落盘。
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	cfg.Source = path
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Set 校验 key=value 后写回配置文件，返回写入后的配置。
// 任何一项不合法时不写文件。
func Set(path string, pairs []string) (Config, error) {
	if len(pairs) == 0 {
		return Config{}, errors.New("no key=value given")
	}
	if err := ValidateKVOverrides(pairs); err != nil {
		return Config{}, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = ApplyKVOverrides(cfg, pairs)
	if err := Save(cfg.Source, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Redacted 返回用于展示的副本，token 只保留前 6 个字符。
func (c Config) Redacted() Config {
	if token := strings.TrimSpace(c.Token); token != "" {
		if r := []rune(token); len(r) > 6 {
			token = string(r[:6])
		}
		c.Token = token + "..."
	}
	return c
}
