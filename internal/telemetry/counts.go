package telemetry

import "sync"

// sync64Map is a mutex-protected string-keyed counter map, for the
// error-code breakdown where the key set isn't known up front.
type sync64Map struct {
	mu sync.Mutex
	m  map[string]int64
}

func (s *sync64Map) add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]int64)
	}
	s.m[key]++
}

func (s *sync64Map) snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.m) == 0 {
		return nil
	}
	out := make(map[string]int64, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
