/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

const (
	UserAgent      = "clubratings/0.4.0 (+https://github.com/mikeb26/clubratings)"
	WebCacheBucket = "bopmatic-clubratings-prod-webcache"
	ArchiveBucket  = "bopmatic-clubratings-prod-archive"
	DateLayout     = "2006-01-02"
)
