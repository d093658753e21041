// Package session implements server-side sessions identified by a signed
// cookie.
//
// A [Manager] is built from a validated config.Config and a [Store]. Its
// [Manager.Middleware] loads the session for every request and commits it
// right before the first response byte:
//
//	mgr := session.NewManager(store, cfg, session.WithLogger(logger))
//	router.Use(mgr.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		s, _ := session.FromContext(r.Context())
//		s.SetValue("theme", "dark")
//	}
//
// On login, bind the user and rotate the ID so a fixated cookie becomes
// useless:
//
//	s.Authenticate(userID)
//	if err := mgr.Regenerate(ctx, s); err != nil { ... }
//
// Store implementations live in the memstore, redisstore, mongostore and
// pgstore subpackages.
package session
