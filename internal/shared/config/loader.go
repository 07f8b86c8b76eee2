package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Source 是变更回调里可用的解析入口。
type Source interface {
	Unmarshal(rawVal any, opts ...viper.DecoderConfigOption) error
	ConfigFileUsed() string
}

func load(configPath string, out any, onChange []func(Source)) {
	if !fileExist(configPath) {
		panic(fmt.Sprintf("config file not exist, configPath=%v", configPath))
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("WARFRONT")
	v.AutomaticEnv()
	if len(onChange) > 0 {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			for _, fn := range onChange {
				fn(v)
			}
		})
		v.WatchConfig()
	}
	// 加载配置
	if err := v.ReadInConfig(); err != nil {
		panic(err)
	}
	if err := v.Unmarshal(out); err != nil {
		panic(err)
	}
}

func fileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
