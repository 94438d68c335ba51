// Package request is the shared request service used by the device-management
// API wrappers.
//
// A request is described with a fluent builder and sent once:
//
//	svc := request.NewService()
//	err := svc.SendRequest().
//	    URL(base + "/device-management/factory").
//	    Method(http.MethodPost).
//	    Data(factory).
//	    Success(func(res *request.Response) {
//	        svc.ClearRequestTime()
//	        handle(res)
//	    }).
//	    NetworkFail(func(err error) {
//	        retryErr = svc.ReAjax(ctx, again)
//	    }).
//	    Send(ctx)
//
// # Outcomes
//
// Send dispatches each exchange to exactly one handler:
//   - 2xx with envelope code 0 (or no envelope): Success
//   - 2xx with a non-zero envelope code: Fail, or Success when Fail is unset
//   - transport failure or 5xx: NetworkFail
//
// Any other status, and a cancelled context, is returned from Send as a
// *RequestError.
//
// # Retries
//
// ReAjax implements the retry helper. All requests of a Service share one
// Timer that remembers when the current run of failures began; ReAjax keeps
// retrying with exponential backoff until RetryWindow has elapsed since that
// first failure, and a success anywhere clears the timer.
package request
