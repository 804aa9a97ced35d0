// Package clauseinsight provides a Go client for the ClauseInsight contract
// analysis API.
//
// The client wraps the HTTP endpoints with typed requests and responses:
//
//	client, _ := clauseinsight.New("http://localhost:8000",
//	    clauseinsight.WithAPIKey(os.Getenv("CLAUSEINSIGHT_API_KEY")),
//	)
//
//	f, _ := os.Open("nda.pdf")
//	defer f.Close()
//	up, _ := client.Upload(ctx, "nda.pdf", f)
//	fmt.Printf("%d chunks indexed\n", up.ChunkCount)
//
//	resp, _ := client.Query(ctx, "how can the agreement be terminated")
//	fmt.Println(resp.Explanation.Summary)
//
// Service failures come back as *APIError values carrying the HTTP status and
// the machine-readable error code; common conditions additionally match the
// package sentinels via errors.Is:
//
//	_, err := client.Query(ctx, "termination")
//	if errors.Is(err, clauseinsight.ErrEmptyIndex) {
//	    // upload a document first
//	}
package clauseinsight
