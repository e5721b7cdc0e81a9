// Package taxii2client provides the entry points for talking to TAXII 2.0
// and 2.1 servers.
//
// The constructors return implementations of the interfaces defined in the
// taxii2 package. Resources load lazily: a Server, APIRoot or Collection is
// fetched the first time one of its properties is read, and Refresh always
// fetches again.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
//	  "github.com/fivetwenty-io/taxii2-client/pkg/taxii2client"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  server, err := taxii2client.NewServer("https://example.com/taxii2/", &taxii2.Config{
//	    Username: "user",
//	    Password: "pass",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer server.Close()
//
//	  root, err := server.Default(ctx)
//	  if err != nil || root == nil { log.Fatal(err) }
//
//	  collections, err := root.Collections(ctx)
//	  if err != nil { log.Fatal(err) }
//
//	  for page, err := range collections[0].ObjectPages(ctx, 100, taxii2.Filters{"type": "indicator"}) {
//	    if err != nil { log.Fatal(err) }
//	    _ = page
//	  }
//	}
//
// Connections
//
// API roots listed by a Server and collections listed by an APIRoot share
// their parent's connection. To share one connection between endpoints you
// construct yourself, create it with NewConnection and pass it in
// taxii2.Config.Connection; closing any of them closes it for all.
package taxii2client
