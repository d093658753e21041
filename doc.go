// Package sessionkit turns a session configuration descriptor into a working
// session layer: a store for the selected adapter, a session manager and
// HTTP middleware.
//
// The descriptor is validated before anything is opened. When an external
// adapter (redis, mongo, postgres) is selected the connection is established
// and pinged inside [New], so a bad host or credentials stop the process at
// startup instead of failing the first request.
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//
//	kit, err := sessionkit.New(ctx, cfg, sessionkit.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer kit.Close(context.Background())
//
//	if err := kit.Start(ctx); err != nil {
//		return err
//	}
//
//	r := chi.NewRouter()
//	r.Use(kit.Middleware)
//	r.Get("/health/ready", health.ReadinessHandler(kit.Checks()))
//
// Handlers reach the session through [session.FromContext].
//
// Stores that implement [session.Cleaner] are swept on the descriptor's
// CleanupSchedule once the kit is started. Connections opened by the kit are
// closed by [Kit.Close]; a store passed with [WithStore] belongs to the caller.
package sessionkit
