// Package datastore provides a chunked, expiring key/value store on top of a
// Redis-protocol engine, shared by the stages of a data pipeline.
//
// Values are encoded with a per-key codec, split into fixed-size chunks and
// indexed by a directory entry under the store's namespace. Every key carries
// a sliding expiration: writes set it, successful reads renew it. Small sets
// and FIFO queues live next to the chunked values and expire the same way.
//
// Basic usage:
//
//	reg := datastore.NewRegistry(datastore.WithAddr("localhost:6379"))
//	defer reg.Close()
//
//	s, _ := reg.Open(ctx, "gtfs")
//
//	// Store and read back a value
//	s.Set(ctx, "stops/2024-05-01", stops)
//	var got []Stop
//	err := s.Get(ctx, "stops/2024-05-01", &got)
//	if errors.Is(err, datastore.ErrNotFound) { ... }
//
//	// Raw bytes, custom expiration
//	s.Set(ctx, "feed.zip", zipped, datastore.WithCodec(datastore.CodecIdentity),
//	    datastore.WithTTL(24*time.Hour))
//
//	// Enumerate and clean up
//	keys, _ := s.Keys(ctx, "stops/*")
//	s.Delete(ctx, "feed.zip")
//	s.Reset(ctx)
//
// Queues hand work from producers to consumers:
//
//	s.Enqueue(ctx, "trips", trip)
//	s.CloseQueue(ctx, "trips")
//
//	var t Trip
//	for {
//	    err := s.Dequeue(ctx, "trips", 30*time.Second, &t)
//	    if errors.Is(err, datastore.ErrEndOfStream) {
//	        break
//	    }
//	    ...
//	}
//
// Opening the same namespace twice on one Registry returns the same *Store,
// so every stage of a process shares one directory cache.
package datastore
