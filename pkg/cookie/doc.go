// Package cookie writes and reads HTTP cookies with shared attributes and
// optional HMAC-SHA256 signing.
//
// Plain cookies work without a secret:
//
//	m := cookie.New(cookie.WithSecure(true))
//	m.Set(w, "theme", "dark", 86400)
//	value, err := m.Get(r, "theme")
//
// Signed cookies carry base64(value).base64(hmac). The first secret signs new
// values; every configured secret is accepted when verifying, so a secret can
// be rotated without logging everyone out:
//
//	m := cookie.New(cookie.WithSecrets(current, retired))
//	err := m.SetSigned(w, "sid", sessionID, 0)
//	id, err := m.GetSigned(r, "sid")
//
// Signed operations return [ErrNoSecret] when no secret is configured and
// [ErrBadSig] when the value was tampered with.
package cookie
