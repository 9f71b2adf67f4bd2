// Package assetpipe turns visual assets into compact, content-addressed
// payloads and delivers each distinct payload to an outbound queue once.
//
// # Overview
//
// A UI capture layer hands the pipeline assets (decoded bitmaps, vector
// drawables, composed layers) as it walks a screen. For each asset the
// pipeline needs a resource identifier to reference from the captured
// frame. Producing one means rasterizing, downscaling, compressing and
// hashing, which is far too slow for the capture path, so all of it runs on
// a worker pool and the caller gets the identifier through a callback.
//
// # Quick Start
//
//	q := queue.NewMemory()
//	p, err := assetpipe.New(q)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	p.Resolve(asset, 256<<10, func(r assetpipe.Result) {
//		if r.OK() {
//			attach(r.ID)
//		}
//	})
//
// # Caching and Coalescing
//
// Assets are keyed by their Signature, a cheap description of what they
// look like. A signature seen before resolves from the identifier cache
// without any work. Requests for a signature whose encode is still running
// wait for that encode instead of starting another.
//
// Identifiers are digests of the payload bytes, so different assets that
// compress to the same bytes share an identifier and are delivered once.
//
// # Memory Pressure
//
// The identifier cache and the buffer pool follow host trim levels through
// a MemoryCoordinator. Forward host signals to Pipeline.MemoryCoordinator,
// or run a pressure.Watcher against it on hosts without such signals.
//
// # Logging
//
// The package is silent by default. Use SetLogger to route its slog
// output.
package assetpipe
