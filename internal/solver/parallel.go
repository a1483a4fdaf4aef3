package solver

import (
	"context"
	"sync"
)

// searchParallel fans cardinality vectors out over a fixed worker pool.
// Vectors are independent subproblems, so workers share nothing but the
// node counter; the first worker to find an instance or hit an error
// cancels the rest. The node and time budgets stay global across workers.
func (s *searcher) searchParallel(parent context.Context, vectors []vector) (*Instance, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	work := make(chan vector)
	go func() {
		defer close(work)
		for _, v := range vectors {
			select {
			case work <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		found   *Instance
		stopErr error
		realErr error
	)
	for w := 0; w < s.cfg.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range work {
				inst, err := s.searchVector(ctx, v)
				if inst == nil && err == nil {
					continue
				}
				mu.Lock()
				if inst != nil && found == nil {
					found = inst
				}
				switch {
				case err == nil:
				case err == errBudget || err == errCanceled:
					if stopErr == nil {
						stopErr = err
					}
				case realErr == nil:
					realErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
		}()
	}
	wg.Wait()

	switch {
	case found != nil:
		return found, nil
	case realErr != nil:
		return nil, realErr
	case stopErr != nil:
		return nil, stopErr
	default:
		return nil, nil
	}
}
