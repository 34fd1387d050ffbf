// Package parallel provides helpers to split index ranges across CPUs.
package parallel

import (
	"runtime"
	"sync"
)

// Execute processes the half-open range [iStart, iEnd) in parallel and waits
// for completion. work is called with disjoint sub-ranges covering the input.
func Execute(iStart, iEnd int, work func(int, int)) {
	<-ExecuteAsync(iStart, iEnd, work)
}

// ExecuteAsync processes the range in parallel and returns a channel that
// notifies the caller when all work is done.
func ExecuteAsync(iStart, iEnd int, work func(int, int)) chan bool {

	// total number of tasks to queue up
	var nbTasks int

	nbIterations := iEnd - iStart // not +1 -> iEnd is not included
	nbIterationsPerCpus := nbIterations / runtime.NumCPU()
	nbTasks = runtime.NumCPU()

	// more CPUs than tasks: a CPU will work on exactly one iteration
	if nbIterationsPerCpus < 1 {
		nbIterationsPerCpus = 1
		nbTasks = nbIterations
	}

	var wg sync.WaitGroup

	extraTasks := iEnd - (iStart + nbTasks*nbIterationsPerCpus)
	extraTasksOffset := 0

	for i := 0; i < nbTasks; i++ {
		wg.Add(1)
		_start := iStart + i*nbIterationsPerCpus + extraTasksOffset
		_end := _start + nbIterationsPerCpus
		if extraTasks > 0 {
			_end++
			extraTasks--
			extraTasksOffset++
		}
		go func() {
			work(_start, _end)
			wg.Done()
		}()
	}

	chDone := make(chan bool, 1)
	go func() {
		wg.Wait()
		chDone <- true
	}()
	return chDone
}
