/*
Package datastoredb provides an implementation of github.com/alexandre-normand/chatrelay/store's StringStorer
interface backed by the Google Cloud Datastore. The relay uses it to keep its link table when it runs
somewhere without a durable local disk.

Requirements for the Google Cloud Datastore integration:
  - A valid project id with datastore mode enabled
  - Google Cloud Credentials (typically a json credentials file for a service account)

Example code:

	import (
		"github.com/alexandre-normand/chatrelay/store/datastoredb"
		"google.golang.org/api/option"
	)

	func main() {
		// The first argument is the datastore kind, the bridge name is a good candidate
		linkStorer, err := datastoredb.New("slackrelay", "my-project", option.WithCredentialsFile(credentialsFile))
		if err != nil {
			log.Fatalf("Opening link db failed: %s", err.Error())
		}
		defer linkStorer.Close()
		...
	}
*/
package datastoredb
