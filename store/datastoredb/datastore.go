package datastoredb

import (
	"context"
	"io"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

// gcdatastore wraps an actual google cloud datastore Client
type gcdatastore struct {
	*datastore.Client
	gcloudProjectID  string
	gcloudClientOpts []option.ClientOption
}

// connecter is implemented by any value that has a connect method
type connecter interface {
	connect() (err error)
}

// datastorer holds the subset of datastore.Client methods used by DatastoreDB
type datastorer interface {
	connecter
	io.Closer
	Delete(c context.Context, k *datastore.Key) (err error)
	Get(c context.Context, k *datastore.Key, dest interface{}) (err error)
	GetAll(c context.Context, query *datastore.Query, dest interface{}) (keys []*datastore.Key, err error)
	Put(c context.Context, k *datastore.Key, v interface{}) (key *datastore.Key, err error)
}

// connect creates a new client from the gcloud project id and client options. Options
// such as option.WithCredentialsFile are re-read on every reconnect
func (ds *gcdatastore) connect() (err error) {
	if ds.Client != nil {
		ds.Client.Close()
	}

	ds.Client, err = datastore.NewClient(context.Background(), ds.gcloudProjectID, ds.gcloudClientOpts...)
	return err
}

// Close closes the client, if any
func (ds *gcdatastore) Close() (err error) {
	if ds.Client == nil {
		return nil
	}

	return ds.Client.Close()
}

// Delete deletes the entity for the given key
func (ds *gcdatastore) Delete(c context.Context, k *datastore.Key) (err error) {
	return ds.Client.Delete(c, k)
}

// Get loads the entity stored for key into dest
func (ds *gcdatastore) Get(c context.Context, k *datastore.Key, dest interface{}) (err error) {
	return ds.Client.Get(c, k, dest)
}

// GetAll runs the query and returns all keys that match it, loading values into dest
func (ds *gcdatastore) GetAll(c context.Context, query *datastore.Query, dest interface{}) (keys []*datastore.Key, err error) {
	return ds.Client.GetAll(c, query, dest)
}

// Put saves v with the given key
func (ds *gcdatastore) Put(c context.Context, k *datastore.Key, v interface{}) (key *datastore.Key, err error) {
	return ds.Client.Put(c, k, v)
}
