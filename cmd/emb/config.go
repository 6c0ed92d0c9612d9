package main

import (
	"github.com/txix-open/emb"
)

func loadConfig() (emb.Config, error) {
	if configPath == "" {
		return emb.DefaultConfig(), nil
	}
	return emb.LoadConfig(configPath)
}
