// Package analysis identifies tracks by their audio content.
//
// A Chromaprint fingerprint is computed with the fpcalc binary and looked
// up on AcoustID; the best matching recording is then queried on
// MusicBrainz for its first release date.
//
//	client, err := analysis.NewClient(fpcalcTool, analysis.Config{APIKey: key})
//	if errors.Is(err, analysis.ErrAnalysisUnavailable) {
//	    // convert without enrichment
//	}
//	meta, ok := client.Identify(ctx, path, baseMetadata)
//
// Requests are rate limited to 3/s for AcoustID and 1/s for MusicBrainz,
// the limits both services publish. Enrichment never fails a conversion:
// Identify reports failures only as ok == false.
package analysis
