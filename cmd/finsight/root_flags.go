package main

import (
	"fmt"
	"strings"

	"finsight/internal/config"
)

type rootArgs struct {
	overrides []string
	cfgPath   string
	logLevel  string
}

// parseRootArgs 在首个子命令之前提取全局参数（-c/--config/--log-level），
// 其余参数（包括交互模式自己的 flag）按原顺序返回。
func parseRootArgs(args []string) (rootArgs, []string, error) {
	var root rootArgs
	rest := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			rest = append(rest, args[i:]...)
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		var dst *string
		switch name {
		case "c":
		case "config":
			dst = &root.cfgPath
		case "log-level":
			dst = &root.logLevel
		default:
			rest = append(rest, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return rootArgs{}, nil, fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = args[i]
		}
		if dst != nil {
			*dst = value
		} else {
			root.overrides = append(root.overrides, value)
		}
	}
	return root, rest, nil
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}

// loadConfig 读取配置文件并依次叠加全局与子命令的 -c 覆盖，最后补上 login 保存的 key。
func loadConfig(root rootArgs, cfgPath string, overrides []string) (config.Config, error) {
	if strings.TrimSpace(cfgPath) == "" {
		cfgPath = root.cfgPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	cfg = config.ApplyKVOverrides(cfg, prependOverrides(root.overrides, overrides))
	return applyStoredKey(cfg, credentialStore()), nil
}
