// Package devicemgmt provides request wrappers for the device-management
// endpoints of the manager API.
//
// The backend manages five kinds of records: factories, car models,
// production batches, the device numbers generated for each batch, and device
// configs (the backend's "device MACs") binding a device number to a MAC
// address and car model.
//
// # Usage
//
//	api := devicemgmt.NewWithURL("http://127.0.0.1:8002/xiaozhi")
//
//	err := api.GetFactories(ctx, devicemgmt.FactoryQuery{Page: 1, Limit: 10}, func(res *request.Response) {
//	    page, err := devicemgmt.DecodePage[devicemgmt.Factory](res)
//	    ...
//	})
//
// Each wrapper performs one HTTP call and invokes its callback exactly once
// with the unmodified response when the call succeeds. Transport failures are
// never passed to the callback: they are logged and the same call is issued
// again through the request service's retry helper, until it succeeds, the
// retry window closes or ctx is cancelled. Those last cases, and HTTP errors
// that are not worth retrying, are returned as the wrapper's error.
//
// Inputs are not validated; the backend owns validation. The device-number
// helpers (ComposeDeviceNumber, PreviewBatchNumbers) mirror the backend's
// numbering rule so a batch can be previewed before it is created.
package devicemgmt
