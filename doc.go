/*
Package chatrelay provides the core of an N-way chat relay between internal host conversations and
external slack channels.

Each side of the relay registers a normalizer, turning its raw events into relay messages, and a
deliverer, sending delivery tasks to its platform. Messages are fanned out to every endpoint linked
to their origin, tagged with their provenance so that echoes are never relayed back. Deliveries are
partitioned per target so that messages to a given endpoint keep their order.

Plugins run on messages before they are relayed and answer back to the origin. Plugins have access to:
  - SLogger: To log debug/info statements
  - The link registry, through the relay
  - The image waiter, pairing deferred image deliveries with their public url

Example code:

	package main

	import (
		"github.com/alexandre-normand/chatrelay"
		"github.com/alexandre-normand/chatrelay/config"
		"github.com/alexandre-normand/chatrelay/hangouts"
		"github.com/alexandre-normand/chatrelay/plugins"
		"github.com/alexandre-normand/chatrelay/store"
		"github.com/alexandre-normand/chatrelay/synclink"
	)

	func main() {
		v, err := config.NewViperFromFile("chatrelay.yaml")
		if err != nil {
			log.Fatal(err)
		}

		registry, err := synclink.NewRegistry("chatrelay", store.NewMemStore())
		if err != nil {
			log.Fatal(err)
		}

		relay, err := chatrelay.NewRelay("chatrelay", v, registry).
			WithPlugin(plugins.NewVersionner("chatrelay", chatrelay.VERSION, func() int { return len(registry.All()) })).
			Build()
		if err != nil {
			log.Fatal(err)
		}
		defer relay.Close()

		host, err := hangouts.NewHost(v)
		if err != nil {
			log.Fatal(err)
		}

		hb := hangouts.New(v, relay, host, chatrelay.NewHTTPImageFetcher(30*time.Second, 0))

		relay.Start()
		if err = hb.Run(context.Background()); err != nil {
			log.Fatal(err)
		}
	}
*/
package chatrelay
