// Package http implements the HTTP handlers for the price API. It is a
// thin layer between the Chi router and the domain packages: handlers
// parse and validate requests, call into the aggregator store or the
// optimizer engine, and format responses.
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Store/Engine
//	                                              ↓
//	HTTP Response ← Handler ← Domain Result ←────┘
//
// # Error Handling
//
// Domain sentinel errors are mapped onto the structured API taxonomy in
// internal/errors and rendered as a consistent JSON envelope:
//
//	{
//	    "success": false,
//	    "error": {
//	        "status_code": 422,
//	        "error_code": "OPTIMIZER_TABLE_TOO_LARGE",
//	        "message": "Budget and item cap combination is too large to solve"
//	    }
//	}
//
// # Testing
//
// Handlers are tested with httptest against a real snapshot store backed
// by a temp directory, so the JSON shapes exercised in tests are the ones
// served in production.
package http
