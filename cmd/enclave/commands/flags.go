package commands

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlag lets an explicitly set flag override the config key.
func bindFlag(f *pflag.Flag, key string) {
	if f == nil {
		panic("commands: unknown flag for " + key)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}
