// Package asynchttp is an asynchronous HTTP client built around a chain of
// interceptors.
//
// Sending a request returns an AsyncResponse, a lazy single-value result.
// Nothing is sent until a consumer asks for the value:
//
//	client, err := asynchttp.New(
//		asynchttp.WithUserAgent("inventory/1.0"),
//		asynchttp.WithRetry(3, time.Second),
//	)
//	if err != nil {
//		return err
//	}
//
//	req, err := message.NewRequest(message.MethodGet, "https://example.com/items", nil)
//	if err != nil {
//		return err
//	}
//
//	resp, err := client.Do(ctx, req)
//	if err != nil {
//		return err
//	}
//	defer resp.Close()
//
// Interceptors run in registration order on the way to the transport and in
// reverse order on the way back. Each one receives a Next continuation that
// stands for the rest of the chain:
//
//	timing := interceptor.Func(func(req *message.Request, next interceptor.Next) *asynchttp.AsyncResponse {
//		start := time.Now()
//		return async.Map(next.Proceed(req), func(resp *message.Response) (*message.Response, error) {
//			log.Printf("%s took %s", req.URL(), time.Since(start))
//			return resp, nil
//		})
//	})
//
// Built-in interceptors for logging, metrics, headers, request IDs, rate
// limiting and retries are enabled with the With* options and always sit
// around the caller's own interceptors in a fixed order: observability,
// request ID, headers, caller interceptors, rate limit, retry.
package asynchttp
