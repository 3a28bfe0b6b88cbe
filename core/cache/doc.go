// Package cache provides a size bounded LRU map with eviction callbacks.
//
// [LRU] is not safe for concurrent use; it is meant to be owned by a single
// goroutine, such as an actor runner's consumer.
//
//	active := cache.NewLRU(cache.LRUOpts[string, *Session]{
//	    Size: 1000,
//	    OnEvict: func(id string, s *Session) {
//	        s.Flush()
//	    },
//	})
//	active.Put("s1", session)
//	if s, ok := active.Get("s1"); ok {
//	    // s is now the most recently used entry
//	}
package cache
