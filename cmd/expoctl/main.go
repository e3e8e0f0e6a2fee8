// Command expoctl manages a Cultural Expo journal directly on its storage
// backend, without going through the API server. It reads the same EXPO_*
// environment as the server.
//
//	expoctl list --month 2024-01
//	expoctl stats
//	expoctl export --out backup.json
//	expoctl import backup.json
//	expoctl clear --yes
//	expoctl token laptop
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sakif/cultural-expo/internal/config"
	"github.com/sakif/cultural-expo/internal/logger"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/storage"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := &app{
		cfg: cfg,
		log: logger.NewConsole("expoctl", cfg.LogLevel),
		open: func(ctx context.Context) (repository.KeyValueStore, error) {
			return storage.Open(ctx, cfg)
		},
	}

	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
