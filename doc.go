// Package transfer provides a chunked, resumable upload pipeline for moving
// large binary payloads into pre-signed URL storage fronted by a batched RPC
// platform API.
//
// The client selects a transfer strategy from the declared payload size,
// registers the destination component and obtains transfer coordinates in one
// preflight round trip, then transfers the payload either over a single
// connection or as independently retried byte-range parts under a bounded
// concurrency ceiling. Failed sessions are compensated by deleting the
// component registered during preflight.
//
// Key features:
//   - Automatic single/multipart strategy selection with size-tiered chunks
//   - Bounded concurrent part transfers with per-part exponential retry
//   - Monotonic progress aggregation over in-flight and committed bytes
//   - Cooperative cancellation via context or explicit abort, with
//     exactly-once compensating cleanup
//   - Progressive enhancement through functional options
//
// Example usage:
//
//	caller := rpc.NewBatchClient("https://platform.example.com/api")
//	client, err := transfer.New(caller)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.UploadFile(ctx, "/local/render.exr",
//	    transfer.WithProgressFunc(func(pct int) { fmt.Printf("\r%3d%%", pct) }),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.ComponentID)
package transfer
