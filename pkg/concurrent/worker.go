package concurrent

import "sync"

type Job[T any] struct {
	ID   int
	Item T
}

type JobFunc[T any, G any] func(job T) G

// DistributeJobs fans jobs out over numWorkers goroutines and collects the
// results in job order.
func DistributeJobs[T any, G any](numWorkers int, jobs []T, fn JobFunc[T, G]) []G {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	jobChan := make(chan Job[T])
	results := make([]G, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				results[job.ID] = fn(job.Item)
			}
		}()
	}

	for i, item := range jobs {
		jobChan <- Job[T]{ID: i, Item: item}
	}
	close(jobChan)
	wg.Wait()

	return results
}
