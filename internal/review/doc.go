// Package review turns a segmented diff into review requests and sends
// them to a completion service.
//
// A diff that fits the token limit goes out as one request; otherwise
// each file is reviewed on its own. Requests run on a bounded worker
// pool, optionally rate limited, and results come back in request order.
// A request that keeps failing after its retries yields a placeholder
// result rather than an error, so a report always has one entry per
// request.
package review
