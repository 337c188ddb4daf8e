package datastoredb

import (
	"context"

	"cloud.google.com/go/datastore"
	"github.com/alexandre-normand/chatrelay/store"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/api/option"
)

const connectivityTestKey = "testConnectivity"

// DatastoreDB implements the store.StringStorer interface. The name given at creation maps
// to the datastore entity Kind to isolate data between bridges
type DatastoreDB struct {
	datastorer
	kind string
}

// EntryValue is the entity stored for every key
type EntryValue struct {
	Value string `datastore:",noindex"`
}

// New returns a new DatastoreDB for the given name (the entity Kind). A gcloud project id and
// client options carrying credentials are required
func New(name string, gcloudProjectID string, gcloudClientOpts ...option.ClientOption) (dsdb *DatastoreDB, err error) {
	return newWithDatastorer(name, &gcdatastore{gcloudProjectID: gcloudProjectID, gcloudClientOpts: gcloudClientOpts})
}

// NewInstrumented returns a new DatastoreDB like New, with every datastore call counted and timed on meter
func NewInstrumented(name string, meter metric.Meter, gcloudProjectID string, gcloudClientOpts ...option.ClientOption) (dsdb *DatastoreDB, err error) {
	ds, err := newDatastorerWithTelemetry(&gcdatastore{gcloudProjectID: gcloudProjectID, gcloudClientOpts: gcloudClientOpts}, name, meter)
	if err != nil {
		return nil, err
	}

	return newWithDatastorer(name, ds)
}

func newWithDatastorer(name string, ds datastorer) (dsdb *DatastoreDB, err error) {
	if err = ds.connect(); err != nil {
		return nil, err
	}

	dsdb = &DatastoreDB{datastorer: ds, kind: name}
	if err = dsdb.testDB(); err != nil {
		dsdb.Close()
		return nil, err
	}

	return dsdb, nil
}

// testDB makes a lightweight call to validate connectivity and credentials
func (dsdb *DatastoreDB) testDB() (err error) {
	_, err = dsdb.GetString(connectivityTestKey)
	if store.IsNotFound(err) {
		return nil
	}

	return err
}

// withReconnect runs op and, on failure other than a missing entity, reconnects and
// runs it one more time
func (dsdb *DatastoreDB) withReconnect(op func() error) (err error) {
	err = op()
	if err == nil || err == datastore.ErrNoSuchEntity {
		return err
	}

	if cerr := dsdb.connect(); cerr != nil {
		return err
	}

	return op()
}

// GetString returns the value associated to a given key
func (dsdb *DatastoreDB) GetString(key string) (value string, err error) {
	var e EntryValue
	k := datastore.NameKey(dsdb.kind, key, nil)

	err = dsdb.withReconnect(func() error {
		return dsdb.Get(context.Background(), k, &e)
	})

	if err == datastore.ErrNoSuchEntity {
		return "", store.NotFound(key)
	} else if err != nil {
		return "", err
	}

	return e.Value, nil
}

// PutString stores the key/value. A datastore put replaces the whole entity
func (dsdb *DatastoreDB) PutString(key string, value string) (err error) {
	k := datastore.NameKey(dsdb.kind, key, nil)

	return dsdb.withReconnect(func() error {
		_, err := dsdb.Put(context.Background(), k, &EntryValue{Value: value})
		return err
	})
}

// DeleteString deletes the entry for the given key
func (dsdb *DatastoreDB) DeleteString(key string) (err error) {
	k := datastore.NameKey(dsdb.kind, key, nil)

	return dsdb.withReconnect(func() error {
		return dsdb.Delete(context.Background(), k)
	})
}

// Scan returns all key/values of this kind
func (dsdb *DatastoreDB) Scan() (entries map[string]string, err error) {
	var vals []*EntryValue
	var keys []*datastore.Key

	err = dsdb.withReconnect(func() (err error) {
		vals = nil
		keys, err = dsdb.GetAll(context.Background(), datastore.NewQuery(dsdb.kind), &vals)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries = make(map[string]string)
	for i, key := range keys {
		entries[key.Name] = vals[i].Value
	}

	return entries, nil
}
