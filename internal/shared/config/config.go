package config

import (
	"os"
	"path/filepath"
)

const defaultConfigRelPath = "configs/conf.yml"

// Load 读取配置到 out，out 必须是指针。onChange 在配置文件变更时调用，
// 由调用方决定如何重新解析与替换。
func Load(cfgName string, out any, onChange ...func(Source)) {
	curDir, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	// 约定：
	// 1) 传入 cfgName（相对/绝对路径）且文件存在则优先使用；
	// 2) 否则从当前目录开始向上查找 `configs/conf.yml`。
	if cfgName != "" {
		path := cfgName
		if !filepath.IsAbs(path) {
			path = filepath.Join(curDir, cfgName)
		}
		if fileExist(path) {
			load(path, out, onChange)
			return
		}
	}

	load(findConfigUpward(curDir), out, onChange)
}

func findConfigUpward(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, defaultConfigRelPath)
		if fileExist(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("config file not exist, searched configs/conf.yml from: " + startDir)
		}
		dir = parent
	}
}
