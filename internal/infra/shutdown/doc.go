// Package shutdown runs teardown hooks when the process is told to stop.
//
// A Handler collects hooks while a long-running command starts its
// pieces, then blocks on SIGINT, SIGTERM or context cancellation:
//
//	sh := shutdown.NewHandler(10 * time.Second)
//	sh.OnShutdown(func(ctx context.Context) error { return srv.Shutdown(ctx) })
//	return sh.WaitContext(ctx)
//
// Hooks run in reverse order of registration under one shared timeout.
package shutdown
