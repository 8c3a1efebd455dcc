// Package clientip extracts the real client address from an HTTP request.
//
// Headers are checked in this order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (first entry)
//  4. X-Real-IP
//  5. RemoteAddr
//
// Values that do not parse as an IP, and the unspecified address, are skipped.
//
//	ip := clientip.GetIP(r)
//
// Headers are client controlled unless a trusted proxy overwrites them, so the
// result is suitable for logging, not for access control.
package clientip
