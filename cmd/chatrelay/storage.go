package main

import (
	"fmt"

	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/store"
	"github.com/alexandre-normand/chatrelay/store/datastoredb"
	"github.com/alexandre-normand/chatrelay/store/inmemorydb"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"google.golang.org/api/option"
)

// Storage backends
const (
	levelDBBackend   = "leveldb"
	datastoreBackend = "datastore"
	memoryBackend    = "memory"
)

// newStorer returns the configured storer for name. Datastore is instrumented and fronted by an in-memory copy
func newStorer(v *viper.Viper, name string) (s store.StringStorer, err error) {
	switch backend := v.GetString(config.StorageBackendKey); backend {
	case levelDBBackend:
		ldb, err := store.NewLevelDB(name, v.GetString(config.StoragePathKey))
		if err != nil {
			return nil, err
		}

		return ldb, nil
	case datastoreBackend:
		opts := make([]option.ClientOption, 0)
		if creds := v.GetString(config.StorageCredentialsKey); creds != "" {
			opts = append(opts, option.WithCredentialsFile(creds))
		}

		dsdb, err := datastoredb.NewInstrumented(name, otel.Meter("chatrelay"), v.GetString(config.StorageProjectIDKey), opts...)
		if err != nil {
			return nil, err
		}

		imdb, err := inmemorydb.New(dsdb)
		if err != nil {
			return nil, err
		}

		return imdb, nil
	case memoryBackend:
		return store.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend [%s], must be one of %s, %s or %s", backend, levelDBBackend, datastoreBackend, memoryBackend)
	}
}
