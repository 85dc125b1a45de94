// Package handler contains the HTTP request handlers of the API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the http.HandlerFunc signature. Chi's
// router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, JSON body)
// 2. Take the caller from the request context and call the service layer
// 3. Write the JSON envelope (response.go)
//
// Handlers hold no business rules. Validation and ownership checks live in
// the service package; handlers only translate between HTTP and Go.
package handler
