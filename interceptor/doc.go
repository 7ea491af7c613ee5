// Package interceptor composes request/response middleware around an
// asynchronous terminal step.
//
// An Interceptor receives the request and a Next handle representing the rest
// of the chain. It may rewrite the request, call Next.Proceed to continue,
// transform the resulting Single, or answer on its own without proceeding.
//
// For interceptors I1, I2 registered in that order, request-phase code runs
// I1 then I2 then the terminal; response-phase code runs in reverse:
//
//	chain := interceptor.NewChain(terminal, i1, i2)
//	resp, err := chain.Invoke(req).Await(ctx)
//
// Every subscription of the Single returned by Invoke runs the chain again
// from the first interceptor. Requests are immutable, so rewriting one with
// message.Request.WithHeader and friends never affects other calls that share
// the chain.
package interceptor
