// Package middleware carries tokens between HTTP requests and the
// tokenAuth engine.
//
// # Transports
//
//   - [CookieTransport]: HttpOnly accessToken and refreshToken cookies.
//   - [BearerTransport]: Authorization: Bearer in, X-Access-Token out.
//
// # Guards
//
//   - [RequireSession]: cookie gate with silent access renewal.
//   - [RequireBearer]: header-only verification, no refresh fallback.
//   - [Authenticate]: picks one of the above by the credentials present.
//
// Guards inject the admitted user with tokenAuth.WithUser. Rejections are
// written by [WriteError] as JSON bodies of the form {"message", "status"}.
//
// # What this package must NOT do
//
//   - Parse or mint tokens (delegates to the engine).
//   - Access any store.
package middleware
