/*
Package inmemorydb provides an implementation of github.com/alexandre-normand/chatrelay/store's StringStorer
interface keeping a copy of everything in memory and writing through to a wrapped StringStorer for persistence.

The link registry reads its persisted list on every mutation. Wrapping a remote storer (such as the datastoredb)
with an InMemoryDB keeps those reads local while puts and deletes still reach the persistent storer first.

Example code:

	persistentStorer, err := datastoredb.New("slackrelay", "my-project", option.WithCredentialsFile(credentialsFile))
	if err != nil {
		log.Fatalf("Opening link db failed: %s", err.Error())
	}

	linkStorer, err := inmemorydb.New(persistentStorer)
	if err != nil {
		log.Fatalf("Creating in-memory db wrapper failed: %s", err.Error())
	}
	defer linkStorer.Close()
*/
package inmemorydb
