// Package async provides Single, a lazy, demand-gated asynchronous value that
// resolves to exactly one result.
//
// A Single does nothing when it is built or composed. Work starts when a
// subscriber requests at least one item:
//
//	sub := single.Subscribe(async.Observer[int]{
//		Success: func(v int) { fmt.Println(v) },
//		Failure: func(err error) { log.Println(err) },
//	})
//	sub.Request(1) // the emitter runs here, once
//
// Every subscription owns a small state machine (idle, started, done,
// canceled) whose transitions are single compare-and-set operations, so a
// late completion racing a cancel can never deliver twice. A canceled
// subscription receives neither a value nor an error.
//
// Singles are cold: subscribing twice runs the work twice. Retrying is
// therefore just resubscribing.
package async
