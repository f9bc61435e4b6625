package main

import (
	"github.com/rotisserie/eris"

	"github.com/ppa-research/access-cli/internal/store"
)

func initStore() (store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, eris.New("store.path is not configured")
	}
	return store.NewSQLite(cfg.Store.Path)
}
