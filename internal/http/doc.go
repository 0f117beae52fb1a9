// Package http provides the HTTP client used to query the AcoustID and
// MusicBrainz web services.
//
// The Client in this package handles:
//   - User-Agent headers (required by MusicBrainz)
//   - Client side rate limiting with golang.org/x/time/rate
//   - A retry on 429 and 503 answers
//   - JSON decoding
//
// # Basic Usage
//
//	client := http.NewClient(http.WithRateLimit(1))
//
//	var rec recording
//	err := client.GetJSON(ctx, "https://musicbrainz.org/ws/2/recording/<id>?fmt=json", &rec)
package http
