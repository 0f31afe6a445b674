// Package webhook implements the inbound HTTP surface: the Notion webhook
// endpoint with HMAC-SHA256 verification, the health probe, and the recent
// runs listing.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified using crypto/subtle (constant-time comparison)
// - Body size limits enforced to prevent DoS attacks
// - No signature details leaked in error responses (always generic 401)
// - Request logging excludes payload bodies
// - When no secret is configured, verification is skipped with a warning;
//   this supports first-run bootstrap, since the secret IS the verification
//   token Notion hands over via this endpoint
//
// # Request Flow
//
//  1. HTTP POST arrives at /webhook
//  2. Body size checked (reject with 413 if too large)
//  3. Payload decoded into a typed event (reject with 400 if unrecognized)
//  4. Verification handshake short-circuits with 200; the token is logged
//     for the operator and the pipeline is not invoked
//  5. HMAC-SHA256 computed over the raw body and compared in constant time
//     (reject with 401 on mismatch)
//  6. Pipeline runs: filter, transcript fetch, summarization, page write
//  7. 200 with the run outcome, or 502 after retries are exhausted
//
// # Error Responses
//
// - 400 Bad Request: payload shape not recognized
// - 401 Unauthorized: invalid or missing signature (no details)
// - 413 Payload Too Large: body exceeds webhook.max_body_size
// - 502 Bad Gateway: an upstream call failed after retries
package webhook
