// Package clientip resolves the real client address of an HTTP request
// behind common proxy layers and carries it through the request
// context.
//
// The webhook allow-list check depends on this resolution: the
// middleware stores the normalized address once, and handlers read it
// with GetIPFromContext.
//
//	r.Use(clientip.Middleware)
//	...
//	ip := clientip.GetIPFromContext(r.Context())
package clientip
