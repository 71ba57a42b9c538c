// Package http implements the HTTP handlers of the demand dashboard.
// Handlers are a thin layer between the chi router and the dashboard
// service: they parse and validate query parameters, call the service and
// render the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → DashboardService
//	                                              ↓
//	HTTP Response ← Handler ← View / Summary ←───┘
//
// # Query Parameters
//
// Every filtered endpoint accepts the same parameters:
//
//	products  repeated or comma separated product names
//	from, to  inclusive YYYY-MM-DD bounds, defaulting to the dataset range
//	round     round statistics to two decimals
//
// # Error Handling
//
// Errors are RFC 7807 problems rendered by apierrors.ErrorHandler:
//
//	{
//	    "type": "/errors/dashboard/unknown-product",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "unknown product(s): [Product 99]",
//	    "instance": "/api/dashboard/observations",
//	    "error_code": "UNKNOWN_PRODUCT"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// DashboardServiceInterface.
package http
