// Package http implements the HTTP handlers of the transformation service.
// It is a thin layer between transport and business logic: handlers parse
// and validate requests, call the service layer, and format responses.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service
//	                                              ↓
//	HTTP Response ← Handler ← Service Result ←───┘
//
// # Handler Structure
//
// Each handler owns a Routes() chi.Router and follows this pattern:
//
//	func (h *Handler) HandleSomething(w http.ResponseWriter, r *http.Request) {
//	    // 1. Parse and validate the request
//	    // 2. Call the service layer
//	    // 3. Render the response, or hand the error to the error handler
//	}
//
// # Error Handling
//
// All errors render as RFC 7807 problem details through
// errors.ErrorHandler, which maps domain sentinels (unsupported format,
// too few columns, unknown run) onto their status codes:
//
//	{
//	    "type": "/errors/input/table-invalid",
//	    "title": "Invalid Input Table",
//	    "status": 422,
//	    "detail": "input needs a symbol column, a name column and at least one factor column",
//	    "instance": "/api/transform"
//	}
//
// # Uploads and Downloads
//
// POST /api/transform accepts a multipart upload and streams the
// transformed table straight back; the run ID and data-quality counters
// travel in response headers so the body stays a plain file. Recorded
// output files are served later via the runs handler.
package http
